// Package timeframe parses the insight API's from/to date parameters into an
// inclusive calendar-day range.
package timeframe

import (
	"fmt"
	"time"
)

// DateLayout is the accepted wire format for range boundaries.
const DateLayout = "2006-01-02"

// defaultSpanDays is the range used when the caller provides no from date.
const defaultSpanDays = 30

// Range is an inclusive calendar-day range in UTC.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t's UTC calendar day falls inside the range.
func (r Range) Contains(t time.Time) bool {
	key := t.UTC().Format(DateLayout)
	return key >= r.From.Format(DateLayout) && key <= r.To.Format(DateLayout)
}

// Days returns the number of calendar days the range spans.
func (r Range) Days() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// TimeProvider abstracts the clock so parsers are testable.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider uses the system clock.
type DefaultTimeProvider struct{}

func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Parser turns from/to query strings into validated ranges.
type Parser struct {
	timeProvider TimeProvider
}

func NewParser(timeProvider ...TimeProvider) *Parser {
	var provider TimeProvider = DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}
	return &Parser{timeProvider: provider}
}

// Parse builds the range from the from/to strings. A missing to defaults to
// today; a missing from defaults to 30 days before to. Both bounds are
// normalized to midnight UTC of their calendar day.
func (p *Parser) Parse(fromStr, toStr string) (Range, error) {
	to, err := p.parseDay(toStr, dayOf(p.timeProvider.Now()))
	if err != nil {
		return Range{}, fmt.Errorf("invalid 'to' date: %w", err)
	}
	from, err := p.parseDay(fromStr, to.AddDate(0, 0, -defaultSpanDays))
	if err != nil {
		return Range{}, fmt.Errorf("invalid 'from' date: %w", err)
	}
	if from.After(to) {
		return Range{}, fmt.Errorf("'from' date %s is after 'to' date %s", from.Format(DateLayout), to.Format(DateLayout))
	}
	return Range{From: from, To: to}, nil
}

func (p *Parser) parseDay(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	day, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return day, nil
}

func dayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
