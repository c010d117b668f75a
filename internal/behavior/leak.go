// Package behavior computes the behavioral aggregates: cart leak, category
// interactions, daily trends with anomaly thresholds, and geo conversion.
// All builders treat sessions and item metadata as read-only.
package behavior

import (
	"sort"

	"shoplens/internal/ingest"
)

// LeakRow is the cart leak for one item. Keyed by item identifier, never by
// category, so per-item and per-category tallies stay separate.
type LeakRow struct {
	ItemID  string  `json:"itemId"`
	Adds    int     `json:"adds"`
	Removes int     `json:"removes"`
	Leak    float64 `json:"leak"`
}

// LeakSummary is the cart leak aggregate: per-item rows plus the overall
// ratio across all cart activity.
type LeakSummary struct {
	Overall      float64   `json:"overall"`
	TotalAdds    int       `json:"totalAdds"`
	TotalRemoves int       `json:"totalRemoves"`
	Items        []LeakRow `json:"items"`
}

// BuildLeak sums cart add/remove counts per item across all sessions. The
// leak ratio is clamp(removes/adds, 0, 1) and 0 without adds; rows sort by
// leak descending with ties broken by higher absolute removes.
func BuildLeak(sessions []ingest.Session) *LeakSummary {
	type tally struct{ adds, removes int }
	byItem := make(map[string]*tally)
	order := make([]string, 0)

	summary := &LeakSummary{}
	for _, s := range sessions {
		for _, ev := range s.CartEvents {
			if ev.ItemID == "" {
				continue
			}
			t, ok := byItem[ev.ItemID]
			if !ok {
				t = &tally{}
				byItem[ev.ItemID] = t
				order = append(order, ev.ItemID)
			}
			t.adds += ev.Add
			t.removes += ev.Remove
			summary.TotalAdds += ev.Add
			summary.TotalRemoves += ev.Remove
		}
	}

	summary.Items = make([]LeakRow, 0, len(byItem))
	for _, itemID := range order {
		t := byItem[itemID]
		summary.Items = append(summary.Items, LeakRow{
			ItemID:  itemID,
			Adds:    t.adds,
			Removes: t.removes,
			Leak:    LeakRatio(t.adds, t.removes),
		})
	}
	SortLeakRows(summary.Items)

	summary.Overall = LeakRatio(summary.TotalAdds, summary.TotalRemoves)
	return summary
}

// LeakRatio is clamp(removes/adds, 0, 1), 0 when there are no adds.
func LeakRatio(adds, removes int) float64 {
	if adds <= 0 {
		return 0
	}
	ratio := float64(removes) / float64(adds)
	if ratio > 1 {
		return 1
	}
	if ratio < 0 {
		return 0
	}
	return ratio
}

// SortLeakRows orders rows by leak descending, ties by removes descending.
func SortLeakRows(rows []LeakRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Leak != rows[j].Leak {
			return rows[i].Leak > rows[j].Leak
		}
		return rows[i].Removes > rows[j].Removes
	})
}
