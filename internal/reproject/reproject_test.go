package reproject_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/ingest"
	"shoplens/internal/insights"
	"shoplens/internal/reproject"
)

func at(d, h int) time.Time {
	return time.Date(2024, 10, d, h, 0, 0, 0, time.UTC)
}

func date(d int) time.Time {
	return time.Date(2024, 10, d, 0, 0, 0, 0, time.UTC)
}

func fixtureBundle() *insights.Bundle {
	sessions := []ingest.Session{
		{
			ID: "s1", VisitorID: "v1", Country: "DE", Timestamp: at(1, 9),
			NViews: 2, NCartAdd: 2, NCartRemove: 1,
			Items: []string{"X", "Y"},
			Views: []ingest.ViewEvent{
				{ItemID: "X", Time: at(1, 9)},
				{ItemID: "Y", Time: at(1, 10)},
			},
			CartEvents: []ingest.CartEvent{
				{ItemID: "X", Add: 1, Time: at(1, 11)},
				{ItemID: "Y", Add: 1, Time: at(1, 12)},
				{ItemID: "X", Remove: 1, Time: at(1, 13)},
			},
		},
		{
			ID: "s2", VisitorID: "v2", Country: "FR", Timestamp: at(2, 9),
			NViews: 1, NCartAdd: 1, NCartRemove: 0,
			Items: []string{"X"},
			Views: []ingest.ViewEvent{
				{ItemID: "X", Time: at(2, 9)},
			},
			CartEvents: []ingest.CartEvent{
				{ItemID: "X", Add: 1, Time: at(2, 10)},
			},
		},
		{
			ID: "s3", VisitorID: "v3", Country: "DE", Timestamp: at(3, 9),
			NViews: 1, NCartAdd: 1, NCartRemove: 1,
			Items: []string{"Y"},
			Views: []ingest.ViewEvent{
				{ItemID: "Y", Time: at(3, 9)},
			},
			CartEvents: []ingest.CartEvent{
				{ItemID: "Y", Add: 1, Time: at(3, 10)},
				{ItemID: "Y", Remove: 1, Time: at(3, 11)},
			},
		},
	}
	meta := ingest.ItemMeta{
		"X": {Title: "Item X", Price: 10, Category: "Shoes"},
		"Y": {Title: "Item Y", Price: 90, Category: "Bags"},
	}
	return insights.Compute(context.Background(), sessions, meta, "insights-v2")
}

func TestRangeFullSpanIsIdempotent(t *testing.T) {
	src := fixtureBundle()
	out := reproject.Range(src, date(1), date(3))

	assert.Len(t, out.Sessions, len(src.Sessions))
	assert.Equal(t, src.Leak.TotalAdds, out.Leak.TotalAdds)
	assert.Equal(t, src.Leak.TotalRemoves, out.Leak.TotalRemoves)
	assert.Equal(t, src.Leak.Items, out.Leak.Items)

	// Ratio 1 scaling keeps the count matrix and probabilities intact.
	assert.Equal(t, src.Flow.Counts, out.Flow.Counts)
	assert.Equal(t, src.Flow.Probabilities, out.Flow.Probabilities)

	// Reprojected links never include self-loops.
	for _, link := range out.Flow.Links {
		assert.NotEqual(t, link.Source, link.Target)
	}

	assert.Equal(t, src.Daily.Days, out.Daily.Days)
	assert.Equal(t, src.Version, out.Version)
}

func TestRangeSubsetUsesExactCartTotals(t *testing.T) {
	src := fixtureBundle()
	out := reproject.Range(src, date(1), date(2))

	require.Len(t, out.Sessions, 2)
	// Days 1-2 ground truth: 3 adds, 1 remove.
	assert.Equal(t, 3, out.Leak.TotalAdds)
	assert.Equal(t, 1, out.Leak.TotalRemoves)

	// Apportioned item counts sum exactly to the totals.
	sumAdds, sumRemoves := 0, 0
	for _, row := range out.Leak.Items {
		sumAdds += row.Adds
		sumRemoves += row.Removes
		assert.GreaterOrEqual(t, row.Leak, 0.0)
		assert.LessOrEqual(t, row.Leak, 1.0)
	}
	assert.Equal(t, 3, sumAdds)
	assert.Equal(t, 1, sumRemoves)

	// Category carts realign to the same cart-add total.
	sumCarts := 0
	for _, row := range out.Categories {
		sumCarts += row.Carts
	}
	assert.Equal(t, 3, sumCarts)

	// Daily series keeps only in-range days, exactly.
	require.Len(t, out.Daily.Days, 2)
	assert.Equal(t, "2024-10-01", out.Daily.Days[0].Date)
	assert.Equal(t, "2024-10-02", out.Daily.Days[1].Date)

	// Geo is recomputed from the filtered sessions: one DE, one FR.
	require.Len(t, out.Geo, 2)
	for _, row := range out.Geo {
		assert.Equal(t, 1, row.Sessions)
		assert.Equal(t, 1.0, row.Rate)
	}
}

func TestRangeScalesApproximateFields(t *testing.T) {
	src := fixtureBundle()
	out := reproject.Range(src, date(1), date(1))

	// One of three sessions: ratio 1/3.
	require.Len(t, out.Sessions, 1)

	// Bundle support scales by the ratio, ranking order is preserved.
	require.Equal(t, len(src.FrequentBundles), len(out.FrequentBundles))
	for i := range out.FrequentBundles {
		assert.Equal(t, src.FrequentBundles[i].ItemA, out.FrequentBundles[i].ItemA)
		assert.InDelta(t, src.FrequentBundles[i].Support/3, out.FrequentBundles[i].Support, 1e-9)
	}

	// Recommendation rankings are untouched.
	assert.Equal(t, src.Recommendations, out.Recommendations)

	// Sample arrays truncate to round(len*ratio).
	for key, samples := range src.PriceSamples {
		want := int(float64(len(samples))/3 + 0.5)
		assert.Len(t, out.PriceSamples[key], want, "samples for %s", key)
	}

	// Band rates survive, they are already ratios.
	require.Equal(t, len(src.PriceBands), len(out.PriceBands))
	for i := range out.PriceBands {
		assert.Equal(t, src.PriceBands[i].ViewToCart, out.PriceBands[i].ViewToCart)
		assert.Equal(t, src.PriceBands[i].WishToCart, out.PriceBands[i].WishToCart)
	}
}

func TestRangeEmptySpanYieldsEmptyShape(t *testing.T) {
	src := fixtureBundle()
	out := reproject.Range(src, date(20), date(25))

	require.NotNil(t, out)
	assert.Empty(t, out.Sessions)
	assert.Empty(t, out.Leak.Items)
	assert.Zero(t, out.Leak.Overall)
	assert.Empty(t, out.Categories)
	assert.Empty(t, out.Flow.Links)
	for i := range out.Flow.Counts {
		for _, c := range out.Flow.Counts[i] {
			assert.Zero(t, c)
		}
	}
	for _, samples := range out.PriceSamples {
		assert.Empty(t, samples)
	}
	assert.Empty(t, out.Geo)
	assert.Equal(t, src.Version, out.Version)
}

func TestRangeConcurrentInvocations(t *testing.T) {
	src := fixtureBundle()

	done := make(chan *insights.Bundle, 8)
	for i := 0; i < 8; i++ {
		d := 1 + i%3
		go func() {
			done <- reproject.Range(src, date(d), date(d))
		}()
	}
	for i := 0; i < 8; i++ {
		out := <-done
		require.NotNil(t, out)
		assert.LessOrEqual(t, len(out.Sessions), 1)
	}
}
