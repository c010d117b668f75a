package pricing

import (
	"shoplens/internal/ingest"
)

// TierStat is the conversion funnel for one price tier.
type TierStat struct {
	Tier            string  `json:"tier"`
	SessionsViewed  int     `json:"sessionsViewed"`
	SessionsAdded   int     `json:"sessionsAdded"`
	CartAdds        int     `json:"cartAdds"`
	CartRemoves     int     `json:"cartRemoves"`
	PViewToCart     float64 `json:"pViewToCart"`
	PCartToCheckout float64 `json:"pCartToCheckout"`
}

// FunnelModel is the price-tiered funnel: one TierStat per emitted tier plus
// the boundary metadata that produced the tiering.
type FunnelModel struct {
	Boundaries Boundaries `json:"boundaries"`
	Tiers      []TierStat `json:"tiers"`
}

// BuildFunnel computes per-tier conversion stats over read-only sessions.
//
// Per session and tier two booleans are tracked: "viewed this tier" and
// "viewed then added this tier to cart"; their session counts give
// pViewToCart. Raw add/remove counts give pCartToCheckout as
// clamp((adds-removes)/adds, 0, 1), a proxy rate that is 0 for zero-add
// tiers. The All tier is always computed in addition to any Low/Mid/High.
func BuildFunnel(sessions []ingest.Session, meta ingest.ItemMeta, b Boundaries) *FunnelModel {
	tiers := b.Tiers()
	stats := make(map[string]*TierStat, len(tiers))
	for _, tier := range tiers {
		stats[tier] = &TierStat{Tier: tier}
	}
	if _, ok := stats[TierAll]; !ok {
		stats[TierAll] = &TierStat{Tier: TierAll}
	}

	for _, s := range sessions {
		viewed := make(map[string]bool, len(tiers))
		added := make(map[string]bool, len(tiers))

		for _, v := range s.Views {
			viewed[b.TierOf(meta.PriceOf(v.ItemID))] = true
			viewed[TierAll] = true
		}
		for _, c := range s.CartEvents {
			tier := b.TierOf(meta.PriceOf(c.ItemID))
			if c.Add > 0 {
				if viewed[tier] {
					added[tier] = true
				}
				if viewed[TierAll] {
					added[TierAll] = true
				}
			}
			if st, ok := stats[tier]; ok {
				st.CartAdds += c.Add
				st.CartRemoves += c.Remove
			}
			if tier != TierAll {
				stats[TierAll].CartAdds += c.Add
				stats[TierAll].CartRemoves += c.Remove
			}
		}

		for tier := range viewed {
			if st, ok := stats[tier]; ok {
				st.SessionsViewed++
			}
		}
		for tier := range added {
			if st, ok := stats[tier]; ok {
				st.SessionsAdded++
			}
		}
	}

	model := &FunnelModel{Boundaries: b, Tiers: make([]TierStat, 0, len(tiers))}
	for _, tier := range tiers {
		st := stats[tier]
		if st.SessionsViewed > 0 {
			st.PViewToCart = float64(st.SessionsAdded) / float64(st.SessionsViewed)
		}
		if st.CartAdds > 0 {
			st.PCartToCheckout = clamp01(float64(st.CartAdds-st.CartRemoves) / float64(st.CartAdds))
		}
		model.Tiers = append(model.Tiers, *st)
	}
	return model
}
