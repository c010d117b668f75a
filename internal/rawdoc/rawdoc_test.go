package rawdoc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shoplens/internal/rawdoc"
)

func TestResolveIDShapes(t *testing.T) {
	assert.Equal(t, "abc123", rawdoc.ResolveID("abc123"))
	assert.Equal(t, "abc123", rawdoc.ResolveID(" abc123 "))
	assert.Equal(t, "42", rawdoc.ResolveID(float64(42)))

	// Wrapped identifier object
	assert.Equal(t, "5f1d7f", rawdoc.ResolveID(map[string]any{"$oid": "5f1d7f"}))

	// Nested _id document
	doc := map[string]any{"_id": map[string]any{"$oid": "deadbeef"}}
	assert.Equal(t, "deadbeef", rawdoc.ResolveID(doc))

	assert.Equal(t, "", rawdoc.ResolveID(nil))
	assert.Equal(t, "", rawdoc.ResolveID(map[string]any{"unrelated": 1}))
}

func TestResolveIDCircularReference(t *testing.T) {
	inner := map[string]any{}
	outer := map[string]any{"_id": inner}
	inner["_id"] = outer

	// Must terminate and yield an empty identifier, not recurse forever.
	assert.Equal(t, "", rawdoc.ResolveID(outer))
}

func TestResolveTimeShapes(t *testing.T) {
	fallback := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	want := time.Date(2024, 10, 2, 8, 30, 0, 0, time.UTC)

	assert.Equal(t, want, rawdoc.ResolveTime(want, fallback))
	assert.Equal(t, want, rawdoc.ResolveTime("2024-10-02T08:30:00Z", fallback))
	assert.Equal(t, want, rawdoc.ResolveTime(float64(want.UnixMilli()), fallback))
	assert.Equal(t, want, rawdoc.ResolveTime(float64(want.Unix()), fallback))
	assert.Equal(t, want, rawdoc.ResolveTime(map[string]any{"$date": "2024-10-02T08:30:00Z"}, fallback))

	assert.Equal(t, fallback, rawdoc.ResolveTime("not a date", fallback))
	assert.Equal(t, fallback, rawdoc.ResolveTime(nil, fallback))
	assert.Equal(t, fallback, rawdoc.ResolveTime(map[string]any{"$date": "garbage"}, fallback))
}

func TestNumberCoercion(t *testing.T) {
	assert.Equal(t, 12.5, rawdoc.Number(12.5))
	assert.Equal(t, 3.0, rawdoc.Number(3))
	assert.Equal(t, 19.99, rawdoc.Number("19.99"))
	assert.Equal(t, 0.0, rawdoc.Number("free"))
	assert.Equal(t, 0.0, rawdoc.Number(nil))
	assert.Equal(t, 0.0, rawdoc.Number(map[string]any{}))
}

func TestLookupAndCandidates(t *testing.T) {
	doc := rawdoc.Doc{
		"price": map[string]any{"retail": "24.90"},
		"variants": []any{
			map[string]any{"price": 9.5},
			"not-an-object",
		},
	}

	v, ok := rawdoc.Lookup(doc, "price.retail")
	assert.True(t, ok)
	assert.Equal(t, "24.90", v)

	_, ok = rawdoc.Lookup(doc, "price.missing.deeper")
	assert.False(t, ok)

	n, ok := rawdoc.FirstNumber(doc, "price.sale", "price.retail")
	assert.True(t, ok)
	assert.Equal(t, 24.9, n)

	// Present but malformed coerces to 0, it does not fall through.
	doc["price"].(map[string]any)["retail"] = "n/a"
	n, ok = rawdoc.FirstNumber(doc, "price.retail", "variants.price")
	assert.True(t, ok)
	assert.Equal(t, 0.0, n)

	variants := rawdoc.SliceOf(doc, "variants")
	assert.Len(t, variants, 1)
	assert.Equal(t, 9.5, rawdoc.Number(variants[0]["price"]))
}

func TestFirstString(t *testing.T) {
	doc := rawdoc.Doc{"brand": "  Acme  ", "type": ""}
	assert.Equal(t, "Acme", rawdoc.FirstString(doc, "category", "type", "brand"))
	assert.Equal(t, "", rawdoc.FirstString(doc, "category", "type"))
}
