package behavior

import (
	"math"
	"sort"

	"shoplens/internal/ingest"
)

// DayKeyLayout is the bucket key format for daily series.
const DayKeyLayout = "2006-01-02"

// minAnomalyDays is the minimum number of daily buckets before anomaly
// thresholds activate.
const minAnomalyDays = 3

// DailyPoint is one calendar day's view and cart-add counts.
type DailyPoint struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
	Carts int    `json:"carts"`
}

// DailyTrend is the chronological daily series plus anomaly thresholds over
// the cart-add counts. Thresholds only activate with at least three days of
// data and non-zero variance; otherwise no outliers are reported.
type DailyTrend struct {
	Days          []DailyPoint `json:"days"`
	Lower         float64      `json:"lower"`
	Upper         float64      `json:"upper"`
	HasThresholds bool         `json:"hasThresholds"`
	Outliers      []string     `json:"outliers"`
}

// BuildDaily buckets views and cart adds by each event's own calendar day
// (not the session timestamp) and derives mean±2σ anomaly thresholds with
// the lower bound floored at 0.
func BuildDaily(sessions []ingest.Session) *DailyTrend {
	type bucket struct{ views, carts int }
	byDay := make(map[string]*bucket)
	get := func(key string) *bucket {
		b, ok := byDay[key]
		if !ok {
			b = &bucket{}
			byDay[key] = b
		}
		return b
	}

	for _, s := range sessions {
		for _, v := range s.Views {
			get(v.Time.UTC().Format(DayKeyLayout)).views++
		}
		for _, c := range s.CartEvents {
			if c.Add > 0 {
				get(c.Time.UTC().Format(DayKeyLayout)).carts += c.Add
			}
		}
	}

	trend := &DailyTrend{Days: make([]DailyPoint, 0, len(byDay)), Outliers: []string{}}
	for key, b := range byDay {
		trend.Days = append(trend.Days, DailyPoint{Date: key, Views: b.views, Carts: b.carts})
	}
	sort.Slice(trend.Days, func(i, j int) bool {
		return trend.Days[i].Date < trend.Days[j].Date
	})

	if len(trend.Days) < minAnomalyDays {
		return trend
	}

	mean, stddev := cartStats(trend.Days)
	if stddev == 0 {
		return trend
	}

	trend.HasThresholds = true
	trend.Lower = math.Max(0, mean-2*stddev)
	trend.Upper = mean + 2*stddev
	for _, day := range trend.Days {
		carts := float64(day.Carts)
		if carts < trend.Lower || carts > trend.Upper {
			trend.Outliers = append(trend.Outliers, day.Date)
		}
	}
	return trend
}

func cartStats(days []DailyPoint) (mean, stddev float64) {
	n := float64(len(days))
	for _, d := range days {
		mean += float64(d.Carts)
	}
	mean /= n

	variance := 0.0
	for _, d := range days {
		diff := float64(d.Carts) - mean
		variance += diff * diff
	}
	variance /= n
	return mean, math.Sqrt(variance)
}
