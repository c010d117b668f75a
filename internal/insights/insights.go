// Package insights assembles the full analytics bundle from normalized
// sessions and item metadata. Independent aggregators run in parallel over
// read-only inputs; the resulting bundle is immutable.
package insights

import (
	"context"
	"time"

	"shoplens/internal/behavior"
	"shoplens/internal/ingest"
	"shoplens/internal/pkg/async"
	"shoplens/internal/pricing"
	"shoplens/internal/recommend"
	"shoplens/internal/sequence"
)

// aggregatorWorkers bounds the parallel aggregator pool.
const aggregatorWorkers = 4

// SessionView is the serializable per-visit summary included in the bundle.
// Timestamps are normalized to UTC before serialization.
type SessionView struct {
	ID          string    `json:"id"`
	VisitorID   string    `json:"visitorId"`
	Country     string    `json:"country"`
	Date        time.Time `json:"date"`
	NViews      int       `json:"nViews"`
	NCartAdd    int       `json:"nCartAdd"`
	NCartRemove int       `json:"nCartRemove"`
	Items       []string  `json:"items"`
}

// Bundle is the engine's single output. Every numeric field is derived
// deterministically from the sessions and item metadata it was built from.
type Bundle struct {
	Sessions        []SessionView                  `json:"sessions"`
	Leak            *behavior.LeakSummary          `json:"cartLeak"`
	Recommendations map[string][]recommend.Partner `json:"recommendations"`
	FrequentBundles []recommend.Bundle             `json:"frequentBundles"`
	Funnel          *pricing.FunnelModel           `json:"priceFunnel"`
	PriceBands      []pricing.Band                 `json:"priceBands"`
	PriceSamples    map[string][]float64           `json:"priceSamples"`
	Categories      []behavior.CategoryRow         `json:"categories"`
	Flow            *sequence.Model                `json:"flow"`
	Daily           *behavior.DailyTrend           `json:"daily"`
	Geo             []behavior.GeoRow              `json:"geo"`
	ItemMeta        ingest.ItemMeta                `json:"itemMeta"`
	Version         string                         `json:"version"`
}

// SessionViews converts normalized sessions into their serializable form.
func SessionViews(sessions []ingest.Session) []SessionView {
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView{
			ID:          s.ID,
			VisitorID:   s.VisitorID,
			Country:     s.Country,
			Date:        s.Timestamp.UTC(),
			NViews:      s.NViews,
			NCartAdd:    s.NCartAdd,
			NCartRemove: s.NCartRemove,
			Items:       s.Items,
		})
	}
	return views
}

// Compute runs all aggregators over the normalized inputs and assembles the
// bundle. Aggregators with no mutual data dependency run in parallel; the
// band and sample builders run after, as they consume the sequence model's
// retained events and the funnel's boundaries.
func Compute(ctx context.Context, sessions []ingest.Session, meta ingest.ItemMeta, version string) *Bundle {
	tasks := []async.Task{
		{Name: "flow", Execute: func() (any, error) {
			return sequence.Build(sessions, meta), nil
		}},
		{Name: "funnel", Execute: func() (any, error) {
			return pricing.BuildFunnel(sessions, meta, pricing.ComputeBoundaries(meta)), nil
		}},
		{Name: "leak", Execute: func() (any, error) {
			return behavior.BuildLeak(sessions), nil
		}},
		{Name: "categories", Execute: func() (any, error) {
			return behavior.BuildCategories(sessions, meta), nil
		}},
		{Name: "daily", Execute: func() (any, error) {
			return behavior.BuildDaily(sessions), nil
		}},
		{Name: "geo", Execute: func() (any, error) {
			return behavior.BuildGeo(sessions), nil
		}},
		{Name: "recommend", Execute: func() (any, error) {
			return recommend.Build(sessions), nil
		}},
	}

	results := async.NewPool(aggregatorWorkers).Execute(ctx, tasks)
	// A canceled context can leave tasks unfinished; finish them inline so
	// the bundle is always complete.
	for _, task := range tasks {
		if _, ok := results[task.Name]; !ok {
			data, err := task.Execute()
			results[task.Name] = async.Result{Name: task.Name, Data: data, Err: err}
		}
	}

	flow := results["flow"].Data.(*sequence.Model)
	funnel := results["funnel"].Data.(*pricing.FunnelModel)
	rec := results["recommend"].Data.(*recommend.Recommendations)

	return &Bundle{
		Sessions:        SessionViews(sessions),
		Leak:            results["leak"].Data.(*behavior.LeakSummary),
		Recommendations: rec.Items,
		FrequentBundles: rec.Bundles,
		Funnel:          funnel,
		PriceBands:      pricing.BuildBands(flow.Events, flow.Transitions, funnel.Boundaries),
		PriceSamples:    pricing.CollectSamples(flow.Events),
		Categories:      results["categories"].Data.([]behavior.CategoryRow),
		Flow:            flow,
		Daily:           results["daily"].Data.(*behavior.DailyTrend),
		Geo:             results["geo"].Data.([]behavior.GeoRow),
		ItemMeta:        meta,
		Version:         version,
	}
}
