package ingest

import (
	"strings"

	"shoplens/internal/rawdoc"
)

// FallbackCategory is used when no category, type, or brand can be resolved
// for an item.
const FallbackCategory = "Other"

// ItemInfo holds the resolved metadata for one catalog item.
type ItemInfo struct {
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Brand    string  `json:"brand"`
}

// ItemMeta maps item identifiers to their metadata. Built once per request
// and read-only afterwards.
type ItemMeta map[string]ItemInfo

// BuildItemMeta joins raw listing documents against a category lookup built
// from raw category documents. Missing or malformed fields default per field:
// price to 0, category to "Other".
func BuildItemMeta(listings, categories []rawdoc.Doc) ItemMeta {
	categoryNames := make(map[string]string, len(categories))
	for _, doc := range categories {
		id := rawdoc.ResolveID(doc)
		if id == "" {
			continue
		}
		if name := rawdoc.FirstString(doc, "name", "categoryName", "category_name", "title"); name != "" {
			categoryNames[id] = name
		}
	}

	meta := make(ItemMeta, len(listings))
	for _, doc := range listings {
		id := rawdoc.ResolveID(doc)
		if id == "" {
			continue
		}
		meta[id] = ItemInfo{
			Title:    rawdoc.FirstString(doc, "title", "name"),
			Price:    resolvePrice(doc),
			Category: resolveCategory(doc, categoryNames),
			Brand:    rawdoc.FirstString(doc, "brand", "brandName", "brand_name"),
		}
	}
	return meta
}

// resolvePrice tries the direct retail price first, then the first priced
// variant. A present but non-numeric value coerces to 0 and still counts as
// resolved.
func resolvePrice(doc rawdoc.Doc) float64 {
	if n, ok := rawdoc.FirstNumber(doc, "retailPrice", "retail_price", "price.retail", "price"); ok {
		return nonNegative(n)
	}
	for _, variant := range rawdoc.SliceOf(doc, "variants") {
		if n, ok := rawdoc.FirstNumber(variant, "retailPrice", "retail_price", "price"); ok {
			return nonNegative(n)
		}
	}
	return 0
}

func nonNegative(n float64) float64 {
	if n < 0 {
		return 0
	}
	return n
}

// resolveCategory resolves in order: explicit category id through the lookup,
// the technical "type" field, the brand name, then the literal fallback. The
// result is always trimmed and non-empty.
func resolveCategory(doc rawdoc.Doc, categoryNames map[string]string) string {
	if v, ok := rawdoc.First(doc, "categoryId", "category_id", "category"); ok {
		if name, found := categoryNames[rawdoc.ResolveID(v)]; found {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				return trimmed
			}
		}
	}
	if t := rawdoc.FirstString(doc, "type", "productType", "product_type"); t != "" {
		return t
	}
	if brand := rawdoc.FirstString(doc, "brand", "brandName", "brand_name"); brand != "" {
		return brand
	}
	return FallbackCategory
}

// CategoryOf returns the resolved category for an item, falling back to
// "Other" for unknown items.
func (m ItemMeta) CategoryOf(itemID string) string {
	if info, ok := m[itemID]; ok && info.Category != "" {
		return info.Category
	}
	return FallbackCategory
}

// PriceOf returns the resolved price for an item, 0 for unknown items.
func (m ItemMeta) PriceOf(itemID string) float64 {
	if info, ok := m[itemID]; ok {
		return info.Price
	}
	return 0
}
