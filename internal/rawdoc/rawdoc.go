// Package rawdoc extracts typed values from loosely-structured documents.
//
// Raw tracking, listing, and category documents arrive as generic key-value
// maps with no schema guarantees: identifiers may be plain strings or wrapped
// objects, dates may be native values, epoch numbers, or ISO-ish strings, and
// numeric fields may hold strings. Everything outside this package works with
// typed values only; all defaulting and coercion happens here and never
// returns an error.
package rawdoc

import (
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Doc is a raw schema-free document.
type Doc = map[string]any

// maxIDDepth bounds identifier resolution through nested wrapper objects.
const maxIDDepth = 8

// ResolveID extracts an identifier from a raw value. It accepts plain
// strings, numbers, wrapped-identifier objects ({"$oid": ...}) and documents
// carrying a nested "_id"/"id" field. Self-referential structures are
// detected via a visited set and yield an empty identifier instead of
// recursing forever.
func ResolveID(value any) string {
	return resolveID(value, make(map[uintptr]struct{}), 0)
}

func resolveID(value any, visited map[uintptr]struct{}, depth int) string {
	if value == nil || depth > maxIDDepth {
		return ""
	}

	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case map[string]any:
		ptr := reflect.ValueOf(v).Pointer()
		if _, seen := visited[ptr]; seen {
			// Circular reference: give up on this one field.
			return ""
		}
		visited[ptr] = struct{}{}

		for _, key := range []string{"$oid", "_id", "id", "value"} {
			if inner, ok := v[key]; ok {
				if id := resolveID(inner, visited, depth+1); id != "" {
					return id
				}
			}
		}
		return ""
	default:
		return ""
	}
}

// timeLayouts are tried in order when parsing string timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ResolveTime extracts a timestamp from a raw value, returning fallback when
// the value is missing or unparseable. Accepted shapes: native time values,
// numeric epochs (seconds or milliseconds), ISO-like strings, and wrapped
// date objects ({"$date": ...}).
func ResolveTime(value any, fallback time.Time) time.Time {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return fallback
		}
		return v.UTC()
	case float64:
		return epochToTime(v, fallback)
	case int:
		return epochToTime(float64(v), fallback)
	case int64:
		return epochToTime(float64(v), fallback)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return fallback
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
		// Plain epoch in a string still counts.
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToTime(n, fallback)
		}
		return fallback
	case map[string]any:
		for _, key := range []string{"$date", "date", "value"} {
			if inner, ok := v[key]; ok {
				if t := ResolveTime(inner, time.Time{}); !t.IsZero() {
					return t
				}
			}
		}
		return fallback
	default:
		return fallback
	}
}

// epochToTime interprets n as an epoch value. Values above 1e11 are treated
// as milliseconds, everything else as seconds.
func epochToTime(n float64, fallback time.Time) time.Time {
	if n <= 0 {
		return fallback
	}
	if n > 1e11 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}

// Number coerces a raw value to a float64, yielding 0 for anything
// non-numeric. The value still counts as present; callers that need to
// distinguish absence use Lookup first.
func Number(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return n
		}
		return 0
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Bool coerces a raw value to a boolean. Numeric values are true when
// non-zero; strings accept the usual spellings.
func Bool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1" || s == "yes"
	default:
		return false
	}
}

// Lookup resolves a dot-separated path inside a document. It returns the raw
// value and whether the full path existed.
func Lookup(doc Doc, path string) (any, bool) {
	if doc == nil {
		return nil, false
	}
	current := any(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// First returns the value of the first candidate path that resolves.
func First(doc Doc, paths ...string) (any, bool) {
	for _, path := range paths {
		if v, ok := Lookup(doc, path); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// FirstString returns the first candidate path that resolves to a non-empty
// string.
func FirstString(doc Doc, paths ...string) string {
	for _, path := range paths {
		if v, ok := Lookup(doc, path); ok {
			if s, ok := v.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}

// FirstNumber returns the first candidate path that resolves to any present
// value, coerced to a number. Present-but-malformed values coerce to 0 rather
// than falling through to the next candidate.
func FirstNumber(doc Doc, paths ...string) (float64, bool) {
	if v, ok := First(doc, paths...); ok {
		return Number(v), true
	}
	return 0, false
}

// SliceOf returns the path's value as a slice of documents, skipping entries
// that are not objects.
func SliceOf(doc Doc, path string) []Doc {
	v, ok := Lookup(doc, path)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Doc, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
