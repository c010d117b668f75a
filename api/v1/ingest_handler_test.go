package v1

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/rawdoc"
)

func TestParseDocsSingleObject(t *testing.T) {
	docs, err := parseDocs([]byte(`{"_id": "s1", "visitorId": "v1"}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "s1", docs[0]["_id"])
}

func TestParseDocsArray(t *testing.T) {
	docs, err := parseDocs([]byte(`[{"_id": "a"}, {"_id": "b"}, {"_id": "c"}]`))
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "b", docs[1]["_id"])
}

func TestParseDocsEmptyBody(t *testing.T) {
	_, err := parseDocs([]byte("   "))
	require.Error(t, err)

	fiberErr, ok := err.(*fiber.Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, fiberErr.Code)
}

func TestParseDocsMalformedJSON(t *testing.T) {
	for _, body := range []string{`{"broken`, `[{"a": 1}`, `"just a string"`, `42`} {
		_, err := parseDocs([]byte(body))
		assert.Error(t, err, "body: %s", body)
	}
}

func TestEnrichCountryKeepsExisting(t *testing.T) {
	docs := []rawdoc.Doc{
		{"_id": "s1", "countryCode": "DE"},
		{"_id": "s2", "country": "FR"},
	}

	// GeoIP is not configured in tests, resolution returns nothing. Existing
	// country fields must survive untouched either way.
	enrichCountry(docs, "203.0.113.7")

	assert.Equal(t, "DE", docs[0]["countryCode"])
	assert.Equal(t, "FR", docs[1]["country"])
	_, added := docs[1]["countryCode"]
	assert.False(t, added)
}

func TestEnrichCountryWithoutGeoDB(t *testing.T) {
	docs := []rawdoc.Doc{{"_id": "s1"}}
	enrichCountry(docs, "203.0.113.7")

	_, added := docs[0]["countryCode"]
	assert.False(t, added, "no country should be added when GeoIP is disabled")
}
