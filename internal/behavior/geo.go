package behavior

import (
	"sort"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shoplens/internal/ingest"
)

// TopCountries caps the geo conversion table.
const TopCountries = 20

// UnknownCountry labels sessions with no resolvable country code.
const UnknownCountry = "Unknown"

// GeoRow is per-country conversion: sessions with at least one cart add over
// all sessions from that country.
type GeoRow struct {
	Country     string  `json:"country"`
	CountryName string  `json:"countryName"`
	Sessions    int     `json:"sessions"`
	Converted   int     `json:"converted"`
	Rate        float64 `json:"rate"`
}

// BuildGeo computes per-country conversion rates and returns the top
// countries by rate descending, ties broken by session volume.
func BuildGeo(sessions []ingest.Session) []GeoRow {
	type tally struct{ sessions, converted int }
	byCountry := make(map[string]*tally)

	for _, s := range sessions {
		code := s.Country
		if code == "" {
			code = UnknownCountry
		}
		t, ok := byCountry[code]
		if !ok {
			t = &tally{}
			byCountry[code] = t
		}
		t.sessions++
		if s.NCartAdd > 0 {
			t.converted++
		}
	}

	caser := cases.Upper(language.AmericanEnglish)
	countries := gountries.New()

	rows := make([]GeoRow, 0, len(byCountry))
	for code, t := range byCountry {
		row := GeoRow{
			Country:   code,
			Sessions:  t.sessions,
			Converted: t.converted,
		}
		if t.sessions > 0 {
			row.Rate = float64(t.converted) / float64(t.sessions)
		}
		if code == UnknownCountry {
			row.CountryName = UnknownCountry
		} else if country, err := countries.FindCountryByAlpha(code); err == nil {
			row.CountryName = country.Name.Common
		} else {
			row.CountryName = caser.String(code)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Rate != rows[j].Rate {
			return rows[i].Rate > rows[j].Rate
		}
		if rows[i].Sessions != rows[j].Sessions {
			return rows[i].Sessions > rows[j].Sessions
		}
		return rows[i].Country < rows[j].Country
	})

	if len(rows) > TopCountries {
		rows = rows[:TopCountries]
	}
	return rows
}
