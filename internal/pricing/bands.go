package pricing

import (
	"shoplens/internal/sequence"
)

// Band holds smoothed conversion rates for one price band. Bands reuse the
// funnel's tLow/tHigh boundaries but estimate rates with Laplace smoothing
// ((hits+1)/(total+2)) so zero-sample bands do not read as 0%. Sample sizes
// are reported alongside the rates so callers can judge confidence.
type Band struct {
	Band       string  `json:"band"`
	Views      int     `json:"views"`
	CartAdds   int     `json:"cartAdds"`
	WishAdds   int     `json:"wishAdds"`
	ViewToCart float64 `json:"viewToCart"`
	WishToCart float64 `json:"wishToCart"`
}

// BuildBands computes price bands from the sequence model's retained event
// and transition lists. View and wishlist totals come from the event stream;
// conversion hits come from adjacent view->cart_add and wishlist_add->
// cart_add transitions, banded by the price of the originating event.
func BuildBands(events []sequence.Event, transitions []sequence.Transition, b Boundaries) []Band {
	type counters struct {
		views, cartAdds, wishAdds int
		viewHits, wishHits        int
	}

	names := b.Tiers()
	byBand := make(map[string]*counters, len(names))
	for _, name := range names {
		byBand[name] = &counters{}
	}

	tally := func(band string, apply func(*counters)) {
		apply(byBand[band])
		if band != TierAll {
			apply(byBand[TierAll])
		}
	}

	for _, ev := range events {
		switch ev.Type {
		case sequence.StateView:
			tally(b.TierOf(ev.Price), func(c *counters) { c.views++ })
		case sequence.StateCartAdd:
			tally(b.TierOf(ev.Price), func(c *counters) { c.cartAdds++ })
		case sequence.StateWishAdd:
			tally(b.TierOf(ev.Price), func(c *counters) { c.wishAdds++ })
		}
	}

	for _, tr := range transitions {
		if tr.To != sequence.StateCartAdd {
			continue
		}
		switch tr.From {
		case sequence.StateView:
			tally(b.TierOf(tr.FromPrice), func(c *counters) { c.viewHits++ })
		case sequence.StateWishAdd:
			tally(b.TierOf(tr.FromPrice), func(c *counters) { c.wishHits++ })
		}
	}

	bands := make([]Band, 0, len(names))
	for _, name := range names {
		c := byBand[name]
		bands = append(bands, Band{
			Band:       name,
			Views:      c.views,
			CartAdds:   c.cartAdds,
			WishAdds:   c.wishAdds,
			ViewToCart: laplace(c.viewHits, c.views),
			WishToCart: laplace(c.wishHits, c.wishAdds),
		})
	}
	return bands
}

// laplace is the smoothed rate estimator (hits+1)/(total+2).
func laplace(hits, total int) float64 {
	return float64(hits+1) / float64(total+2)
}

// CollectSamples groups raw event prices by event type. All five event types
// are always present so the output shape is stable even for sparse data.
func CollectSamples(events []sequence.Event) map[string][]float64 {
	samples := make(map[string][]float64, sequence.NumStates)
	for _, state := range sequence.States {
		samples[string(state)] = []float64{}
	}
	for _, ev := range events {
		key := string(ev.Type)
		samples[key] = append(samples[key], ev.Price)
	}
	return samples
}
