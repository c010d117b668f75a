// Package pricing computes the price segmentation model: robust tier
// boundaries, the price-tiered conversion funnel, and price bands.
package pricing

import (
	"math"
	"sort"

	"shoplens/internal/ingest"
)

// Tier names. When boundaries are degenerate only TierAll exists.
const (
	TierLow  = "Low"
	TierMid  = "Mid"
	TierHigh = "High"
	TierAll  = "All"
)

// Boundaries holds the two tier-boundary prices computed by the robust
// split. Degenerate marks collapsed tiers (too few prices, or tLow == tHigh);
// degenerate boundaries always assign TierAll.
type Boundaries struct {
	Low        float64 `json:"tLow"`
	High       float64 `json:"tHigh"`
	Degenerate bool    `json:"degenerate"`
	SampleSize int     `json:"sampleSize"`
}

// ComputeBoundaries derives tLow/tHigh from the catalog's item prices:
// finite prices are clipped to the [5th, 95th] percentile window,
// log1p-transformed, split at the 33rd/66th percentiles, and mapped back
// with expm1. Inputs too sparse or flat for a meaningful split yield
// degenerate boundaries; this policy is part of the model's contract.
func ComputeBoundaries(meta ingest.ItemMeta) Boundaries {
	prices := make([]float64, 0, len(meta))
	for _, info := range meta {
		if math.IsNaN(info.Price) || math.IsInf(info.Price, 0) || info.Price < 0 {
			continue
		}
		prices = append(prices, info.Price)
	}

	if len(prices) < 2 {
		return Boundaries{Degenerate: true, SampleSize: len(prices)}
	}

	sort.Float64s(prices)
	lo := percentile(prices, 0.05)
	hi := percentile(prices, 0.95)

	clipped := prices[:0:0]
	for _, p := range prices {
		if p >= lo && p <= hi {
			clipped = append(clipped, math.Log1p(p))
		}
	}
	if len(clipped) < 2 {
		return Boundaries{Degenerate: true, SampleSize: len(prices)}
	}

	tLow := math.Expm1(percentile(clipped, 0.33))
	tHigh := math.Expm1(percentile(clipped, 0.66))
	if tLow == tHigh {
		return Boundaries{Low: tLow, High: tHigh, Degenerate: true, SampleSize: len(prices)}
	}

	return Boundaries{Low: tLow, High: tHigh, SampleSize: len(prices)}
}

// TierOf assigns a price to a tier: price <= tLow is Low, <= tHigh is Mid,
// else High. Degenerate boundaries always yield All.
func (b Boundaries) TierOf(price float64) string {
	if b.Degenerate {
		return TierAll
	}
	switch {
	case price <= b.Low:
		return TierLow
	case price <= b.High:
		return TierMid
	default:
		return TierHigh
	}
}

// Tiers returns the tier names this model emits, in display order.
func (b Boundaries) Tiers() []string {
	if b.Degenerate {
		return []string{TierAll}
	}
	return []string{TierLow, TierMid, TierHigh, TierAll}
}

// percentile computes the q-quantile of sorted values with linear
// interpolation. values must be sorted ascending and non-empty.
func percentile(values []float64, q float64) float64 {
	if len(values) == 1 {
		return values[0]
	}
	rank := q * float64(len(values)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return values[lower]
	}
	frac := rank - float64(lower)
	return values[lower]*(1-frac) + values[upper]*frac
}

// clamp01 bounds a ratio into [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
