package behavior

import (
	"sort"

	"shoplens/internal/ingest"
)

// TopCategories caps the category interaction table.
const TopCategories = 20

// CategoryRow aggregates interactions for one resolved category.
type CategoryRow struct {
	Category string `json:"category"`
	Views    int    `json:"views"`
	Carts    int    `json:"carts"`
	Wish     int    `json:"wish"`
	Total    int    `json:"total"`
}

// BuildCategories counts view, cart-add, and wishlist-add events per
// resolved item category and returns the top categories by total
// interactions descending.
func BuildCategories(sessions []ingest.Session, meta ingest.ItemMeta) []CategoryRow {
	byCategory := make(map[string]*CategoryRow)
	get := func(itemID string) *CategoryRow {
		category := meta.CategoryOf(itemID)
		row, ok := byCategory[category]
		if !ok {
			row = &CategoryRow{Category: category}
			byCategory[category] = row
		}
		return row
	}

	for _, s := range sessions {
		for _, v := range s.Views {
			row := get(v.ItemID)
			row.Views++
			row.Total++
		}
		for _, c := range s.CartEvents {
			if c.Add > 0 {
				row := get(c.ItemID)
				row.Carts += c.Add
				row.Total += c.Add
			}
		}
		for _, w := range s.WishEvents {
			if w.Add > 0 {
				row := get(w.ItemID)
				row.Wish += w.Add
				row.Total += w.Add
			}
		}
	}

	rows := make([]CategoryRow, 0, len(byCategory))
	for _, row := range byCategory {
		rows = append(rows, *row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Category < rows[j].Category
	})

	if len(rows) > TopCategories {
		rows = rows[:TopCategories]
	}
	return rows
}
