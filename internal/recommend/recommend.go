// Package recommend derives co-occurrence based item recommendations and
// frequent item pairs from session unique-item sets.
package recommend

import (
	"math"
	"sort"

	"shoplens/internal/ingest"
)

// MaxPartners caps the recommendation list per item.
const MaxPartners = 10

// MaxBundles caps the frequent-pair list.
const MaxBundles = 15

// Partner is one recommended item with its normalized co-occurrence score.
type Partner struct {
	ItemID  string  `json:"itemId"`
	Score   float64 `json:"score"`
	Support int     `json:"support"`
}

// Bundle is a frequently co-occurring item pair ranked by raw support.
// Support is a float so reprojection can scale it proportionally.
type Bundle struct {
	ItemA   string  `json:"itemA"`
	ItemB   string  `json:"itemB"`
	Support float64 `json:"support"`
}

// Recommendations bundles per-item partner lists and the frequent pairs.
type Recommendations struct {
	Items   map[string][]Partner `json:"items"`
	Bundles []Bundle             `json:"bundles"`
}

// Build counts, for every unordered item pair co-occurring in a session's
// unique-item set, pair support and per-item frequency, then scores pairs
// with cosine-style normalization: support / sqrt(freq(a)*freq(b)). A pair's
// score is identical from both items' perspectives.
func Build(sessions []ingest.Session) *Recommendations {
	type pair struct{ a, b string }
	support := make(map[pair]int)
	freq := make(map[string]int)

	for _, s := range sessions {
		items := s.Items
		for _, item := range items {
			freq[item]++
		}
		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				a, b := items[i], items[j]
				if b < a {
					a, b = b, a
				}
				support[pair{a, b}]++
			}
		}
	}

	rec := &Recommendations{Items: make(map[string][]Partner, len(freq))}

	for p, count := range support {
		score := float64(count) / math.Sqrt(float64(freq[p.a])*float64(freq[p.b]))
		rec.Items[p.a] = append(rec.Items[p.a], Partner{ItemID: p.b, Score: score, Support: count})
		rec.Items[p.b] = append(rec.Items[p.b], Partner{ItemID: p.a, Score: score, Support: count})
		rec.Bundles = append(rec.Bundles, Bundle{ItemA: p.a, ItemB: p.b, Support: float64(count)})
	}

	for itemID, partners := range rec.Items {
		sort.SliceStable(partners, func(i, j int) bool {
			if partners[i].Score != partners[j].Score {
				return partners[i].Score > partners[j].Score
			}
			return partners[i].ItemID < partners[j].ItemID
		})
		if len(partners) > MaxPartners {
			partners = partners[:MaxPartners]
		}
		rec.Items[itemID] = partners
	}

	// Bundles rank by raw support, independent of per-item normalization.
	sort.SliceStable(rec.Bundles, func(i, j int) bool {
		if rec.Bundles[i].Support != rec.Bundles[j].Support {
			return rec.Bundles[i].Support > rec.Bundles[j].Support
		}
		if rec.Bundles[i].ItemA != rec.Bundles[j].ItemA {
			return rec.Bundles[i].ItemA < rec.Bundles[j].ItemA
		}
		return rec.Bundles[i].ItemB < rec.Bundles[j].ItemB
	})
	if len(rec.Bundles) > MaxBundles {
		rec.Bundles = rec.Bundles[:MaxBundles]
	}

	return rec
}
