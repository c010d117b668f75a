package timeframe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/timeframe"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func testParser() *timeframe.Parser {
	return timeframe.NewParser(fixedClock{now: time.Date(2024, 10, 15, 14, 30, 0, 0, time.UTC)})
}

func TestParseExplicitRange(t *testing.T) {
	r, err := testParser().Parse("2024-10-01", "2024-10-07")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC), r.To)
	assert.Equal(t, 7, r.Days())
}

func TestParseDefaults(t *testing.T) {
	r, err := testParser().Parse("", "")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC), r.To)
	assert.Equal(t, time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC), r.From)
}

func TestParseRejectsInvertedRange(t *testing.T) {
	_, err := testParser().Parse("2024-10-10", "2024-10-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is after")
}

func TestParseRejectsMalformedDates(t *testing.T) {
	_, err := testParser().Parse("10/01/2024", "")
	assert.Error(t, err)

	_, err = testParser().Parse("", "yesterday")
	assert.Error(t, err)
}

func TestRangeContains(t *testing.T) {
	r, err := testParser().Parse("2024-10-01", "2024-10-07")
	require.NoError(t, err)

	assert.True(t, r.Contains(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2024, 10, 7, 23, 59, 59, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 9, 30, 23, 0, 0, 0, time.UTC)))
}
