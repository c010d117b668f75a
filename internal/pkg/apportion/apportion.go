// Package apportion distributes an integer total across weighted buckets so
// the shares sum to the total exactly.
package apportion

import "sort"

// Integers splits total proportionally to weights using the largest-remainder
// method. Each bucket gets the floor of its exact share, then the leftover
// units go to the buckets with the largest fractional remainders, ties
// resolved by original position. The returned shares always sum to total.
// Non-positive weights get nothing from the proportional pass; if all weights
// are non-positive, leftover units are assigned from the first bucket on.
func Integers(total int, weights []float64) []int {
	shares := make([]int, len(weights))
	if total <= 0 || len(weights) == 0 {
		return shares
	}

	weightSum := 0.0
	for _, w := range weights {
		if w > 0 {
			weightSum += w
		}
	}

	type frac struct {
		index     int
		remainder float64
	}
	fracs := make([]frac, 0, len(weights))

	assigned := 0
	for i, w := range weights {
		if w <= 0 || weightSum == 0 {
			fracs = append(fracs, frac{index: i})
			continue
		}
		exact := float64(total) * w / weightSum
		floor := int(exact)
		shares[i] = floor
		assigned += floor
		fracs = append(fracs, frac{index: i, remainder: exact - float64(floor)})
	}

	sort.SliceStable(fracs, func(i, j int) bool {
		return fracs[i].remainder > fracs[j].remainder
	})

	for i := 0; assigned < total; i++ {
		shares[fracs[i%len(fracs)].index]++
		assigned++
	}
	return shares
}
