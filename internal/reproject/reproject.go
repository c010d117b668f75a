// Package reproject rescopes a computed insights bundle to a calendar date
// range without re-reading raw documents. It consumes only the bundle's own
// session views and pre-aggregated fields; each invocation produces a fresh
// bundle and is safe to run concurrently against the same source.
package reproject

import (
	"math"
	"time"

	"shoplens/internal/behavior"
	"shoplens/internal/ingest"
	"shoplens/internal/insights"
	"shoplens/internal/pkg/apportion"
	"shoplens/internal/pricing"
	"shoplens/internal/recommend"
	"shoplens/internal/sequence"
)

const dayLayout = "2006-01-02"

// Range reprojects src onto the inclusive calendar-day range [from, to].
//
// Sessions are filtered exactly by their timestamp's UTC date. Cart add and
// remove totals are recomputed exactly from the filtered sessions; item leak
// and category cart counts are reallocated against those totals with
// largest-remainder apportionment so every cart-axis view stays consistent.
// Counts without a ground truth in range scale by the session ratio.
// Price-sample arrays are truncated to round(len*ratio), an approximation
// accepted as a documented precision loss. A range matching no sessions
// yields the defined empty bundle shape, never an error.
func Range(src *insights.Bundle, from, to time.Time) *insights.Bundle {
	fromKey := from.UTC().Format(dayLayout)
	toKey := to.UTC().Format(dayLayout)

	filtered := make([]insights.SessionView, 0, len(src.Sessions))
	for _, sv := range src.Sessions {
		key := sv.Date.UTC().Format(dayLayout)
		if key >= fromKey && key <= toKey {
			filtered = append(filtered, sv)
		}
	}

	if len(filtered) == 0 || len(src.Sessions) == 0 {
		return emptyBundle(src)
	}

	ratio := float64(len(filtered)) / float64(len(src.Sessions))
	if ratio > 1 {
		ratio = 1
	}

	totalAdds, totalRemoves := 0, 0
	for _, sv := range filtered {
		totalAdds += sv.NCartAdd
		totalRemoves += sv.NCartRemove
	}

	out := &insights.Bundle{
		Sessions:        filtered,
		Leak:            reprojectLeak(src.Leak, totalAdds, totalRemoves),
		Recommendations: src.Recommendations,
		FrequentBundles: scaleBundles(src.FrequentBundles, ratio),
		Funnel:          scaleFunnel(src.Funnel, ratio),
		PriceBands:      scaleBands(src.PriceBands, ratio),
		PriceSamples:    truncateSamples(src.PriceSamples, ratio),
		Categories:      reprojectCategories(src.Categories, ratio, totalAdds),
		Flow:            scaleFlow(src.Flow, ratio),
		Daily:           filterDaily(src.Daily, fromKey, toKey),
		Geo:             rebuildGeo(filtered),
		ItemMeta:        src.ItemMeta,
		Version:         src.Version,
	}
	return out
}

// reprojectLeak reallocates per-item adds and removes against the exact
// in-range totals and rebuilds ratios from the allocated integers.
func reprojectLeak(src *behavior.LeakSummary, totalAdds, totalRemoves int) *behavior.LeakSummary {
	out := &behavior.LeakSummary{
		TotalAdds:    totalAdds,
		TotalRemoves: totalRemoves,
		Overall:      behavior.LeakRatio(totalAdds, totalRemoves),
		Items:        []behavior.LeakRow{},
	}
	if src == nil || len(src.Items) == 0 {
		return out
	}

	addWeights := make([]float64, len(src.Items))
	removeWeights := make([]float64, len(src.Items))
	for i, row := range src.Items {
		addWeights[i] = float64(row.Adds)
		removeWeights[i] = float64(row.Removes)
	}
	adds := apportion.Integers(totalAdds, addWeights)
	removes := apportion.Integers(totalRemoves, removeWeights)

	out.Items = make([]behavior.LeakRow, len(src.Items))
	for i, row := range src.Items {
		out.Items[i] = behavior.LeakRow{
			ItemID:  row.ItemID,
			Adds:    adds[i],
			Removes: removes[i],
			Leak:    behavior.LeakRatio(adds[i], removes[i]),
		}
	}
	behavior.SortLeakRows(out.Items)
	return out
}

// reprojectCategories scales view and wishlist counts by the ratio and
// reallocates cart counts against the exact in-range cart-add total, keeping
// the category and leak views consistent on the cart-add axis.
func reprojectCategories(src []behavior.CategoryRow, ratio float64, totalAdds int) []behavior.CategoryRow {
	if len(src) == 0 {
		return []behavior.CategoryRow{}
	}

	cartWeights := make([]float64, len(src))
	for i, row := range src {
		cartWeights[i] = float64(row.Carts)
	}
	carts := apportion.Integers(totalAdds, cartWeights)

	out := make([]behavior.CategoryRow, len(src))
	for i, row := range src {
		views := scaleInt(row.Views, ratio)
		wish := scaleInt(row.Wish, ratio)
		out[i] = behavior.CategoryRow{
			Category: row.Category,
			Views:    views,
			Carts:    carts[i],
			Wish:     wish,
			Total:    views + carts[i] + wish,
		}
	}
	return out
}

// scaleFlow scales transition counts by the ratio, re-derives probabilities
// from the scaled counts, and rebuilds links without self-loops so the
// reprojected flow graph stays acyclic.
func scaleFlow(src *sequence.Model, ratio float64) *sequence.Model {
	out := &sequence.Model{Nodes: sequence.NodeNames()}
	if src == nil {
		out.Links = []sequence.FlowLink{}
		return out
	}
	for i := range src.Counts {
		for j, c := range src.Counts[i] {
			out.Counts[i][j] = scaleInt(c, ratio)
		}
	}
	out.Probabilities = sequence.Normalize(out.Counts)
	out.Links = sequence.LinksFromCounts(out.Counts, true)
	return out
}

// scaleFunnel keeps the boundaries and the already-relative rates; raw
// counts scale by the ratio.
func scaleFunnel(src *pricing.FunnelModel, ratio float64) *pricing.FunnelModel {
	if src == nil {
		return &pricing.FunnelModel{Tiers: []pricing.TierStat{}}
	}
	out := &pricing.FunnelModel{
		Boundaries: src.Boundaries,
		Tiers:      make([]pricing.TierStat, len(src.Tiers)),
	}
	for i, tier := range src.Tiers {
		out.Tiers[i] = pricing.TierStat{
			Tier:            tier.Tier,
			SessionsViewed:  scaleInt(tier.SessionsViewed, ratio),
			SessionsAdded:   scaleInt(tier.SessionsAdded, ratio),
			CartAdds:        scaleInt(tier.CartAdds, ratio),
			CartRemoves:     scaleInt(tier.CartRemoves, ratio),
			PViewToCart:     tier.PViewToCart,
			PCartToCheckout: tier.PCartToCheckout,
		}
	}
	return out
}

// scaleBands scales band counts by the ratio and keeps the smoothed rates,
// which are already ratios.
func scaleBands(src []pricing.Band, ratio float64) []pricing.Band {
	out := make([]pricing.Band, len(src))
	for i, band := range src {
		out[i] = pricing.Band{
			Band:       band.Band,
			Views:      scaleInt(band.Views, ratio),
			CartAdds:   scaleInt(band.CartAdds, ratio),
			WishAdds:   scaleInt(band.WishAdds, ratio),
			ViewToCart: band.ViewToCart,
			WishToCart: band.WishToCart,
		}
	}
	return out
}

// scaleBundles scales pair support by the ratio; rankings are already
// scale-invariant and stay untouched.
func scaleBundles(src []recommend.Bundle, ratio float64) []recommend.Bundle {
	out := make([]recommend.Bundle, len(src))
	for i, b := range src {
		out[i] = recommend.Bundle{ItemA: b.ItemA, ItemB: b.ItemB, Support: b.Support * ratio}
	}
	return out
}

// truncateSamples cuts every price-sample array to round(len*ratio)
// elements. This is an approximation, not an exact resample.
func truncateSamples(src map[string][]float64, ratio float64) map[string][]float64 {
	out := make(map[string][]float64, len(src))
	for key, samples := range src {
		n := scaleInt(len(samples), ratio)
		if n > len(samples) {
			n = len(samples)
		}
		out[key] = append([]float64{}, samples[:n]...)
	}
	return out
}

// filterDaily keeps only the days inside the range and recomputes anomaly
// thresholds over the remaining cart counts.
func filterDaily(src *behavior.DailyTrend, fromKey, toKey string) *behavior.DailyTrend {
	out := &behavior.DailyTrend{Days: []behavior.DailyPoint{}, Outliers: []string{}}
	if src == nil {
		return out
	}
	for _, day := range src.Days {
		if day.Date >= fromKey && day.Date <= toKey {
			out.Days = append(out.Days, day)
		}
	}
	return recomputeThresholds(out)
}

func recomputeThresholds(trend *behavior.DailyTrend) *behavior.DailyTrend {
	if len(trend.Days) < 3 {
		return trend
	}
	n := float64(len(trend.Days))
	mean := 0.0
	for _, d := range trend.Days {
		mean += float64(d.Carts)
	}
	mean /= n
	variance := 0.0
	for _, d := range trend.Days {
		diff := float64(d.Carts) - mean
		variance += diff * diff
	}
	stddev := math.Sqrt(variance / n)
	if stddev == 0 {
		return trend
	}
	trend.HasThresholds = true
	trend.Lower = math.Max(0, mean-2*stddev)
	trend.Upper = mean + 2*stddev
	for _, d := range trend.Days {
		carts := float64(d.Carts)
		if carts < trend.Lower || carts > trend.Upper {
			trend.Outliers = append(trend.Outliers, d.Date)
		}
	}
	return trend
}

// rebuildGeo recomputes the geo conversion table exactly from the filtered
// session views; country-level conversion has full ground truth in range.
func rebuildGeo(sessions []insights.SessionView) []behavior.GeoRow {
	stripped := make([]ingest.Session, len(sessions))
	for i, sv := range sessions {
		stripped[i] = ingest.Session{Country: sv.Country, NCartAdd: sv.NCartAdd}
	}
	return behavior.BuildGeo(stripped)
}

func scaleInt(v int, ratio float64) int {
	return int(math.Round(float64(v) * ratio))
}

// emptyBundle is the defined zero-session shape: empty collections, a
// zero-filled transition matrix, and no flow links. Metadata and the version
// tag survive so callers can still identify the computation revision.
func emptyBundle(src *insights.Bundle) *insights.Bundle {
	boundaries := pricing.Boundaries{Degenerate: true}
	if src.Funnel != nil {
		boundaries = src.Funnel.Boundaries
	}
	samples := make(map[string][]float64, sequence.NumStates)
	for _, state := range sequence.States {
		samples[string(state)] = []float64{}
	}
	return &insights.Bundle{
		Sessions:        []insights.SessionView{},
		Leak:            &behavior.LeakSummary{Items: []behavior.LeakRow{}},
		Recommendations: map[string][]recommend.Partner{},
		FrequentBundles: []recommend.Bundle{},
		Funnel:          &pricing.FunnelModel{Boundaries: boundaries, Tiers: []pricing.TierStat{}},
		PriceBands:      []pricing.Band{},
		PriceSamples:    samples,
		Categories:      []behavior.CategoryRow{},
		Flow:            &sequence.Model{Nodes: sequence.NodeNames(), Links: []sequence.FlowLink{}},
		Daily:           &behavior.DailyTrend{Days: []behavior.DailyPoint{}, Outliers: []string{}},
		Geo:             []behavior.GeoRow{},
		ItemMeta:        src.ItemMeta,
		Version:         src.Version,
	}
}
