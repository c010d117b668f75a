package sequence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shoplens/internal/ingest"
	"shoplens/internal/sequence"
)

func at(minute int) time.Time {
	return time.Date(2024, 10, 1, 10, minute, 0, 0, time.UTC)
}

func testMeta() ingest.ItemMeta {
	return ingest.ItemMeta{
		"X": {Title: "X", Price: 10, Category: "Shoes"},
		"Y": {Title: "Y", Price: 100, Category: "Bags"},
	}
}

func TestSessionStreamOrderingAndPrices(t *testing.T) {
	s := ingest.Session{
		Views: []ingest.ViewEvent{
			{ItemID: "Y", Time: at(2)},
			{ItemID: "X", Time: at(0)},
		},
		CartEvents: []ingest.CartEvent{
			{ItemID: "X", Add: 1, Time: at(1)},
			{ItemID: "X", Remove: 1, Time: at(3)},
		},
		WishEvents: []ingest.CartEvent{
			{ItemID: "Y", Add: 1, Time: at(4)},
		},
	}

	stream := sequence.SessionStream(s, testMeta())
	require.Len(t, stream, 5)

	types := make([]sequence.State, len(stream))
	for i, ev := range stream {
		types[i] = ev.Type
	}
	assert.Equal(t, []sequence.State{
		sequence.StateView,
		sequence.StateCartAdd,
		sequence.StateView,
		sequence.StateCartRemove,
		sequence.StateWishAdd,
	}, types)

	assert.Equal(t, 10.0, stream[0].Price)
	assert.Equal(t, 100.0, stream[2].Price)
	// Unknown items carry price 0.
	unknown := sequence.SessionStream(ingest.Session{
		Views: []ingest.ViewEvent{{ItemID: "nope", Time: at(0)}},
	}, testMeta())
	assert.Equal(t, 0.0, unknown[0].Price)
}

func TestBuildCountsAdjacentPairsPerSession(t *testing.T) {
	sessions := []ingest.Session{
		{
			Views:      []ingest.ViewEvent{{ItemID: "X", Time: at(0)}},
			CartEvents: []ingest.CartEvent{{ItemID: "X", Add: 1, Time: at(1)}},
		},
		{
			Views: []ingest.ViewEvent{{ItemID: "Y", Time: at(0)}, {ItemID: "Y", Time: at(1)}},
		},
	}

	m := sequence.Build(sessions, testMeta())

	view := sequence.Index(sequence.StateView)
	add := sequence.Index(sequence.StateCartAdd)

	assert.Equal(t, 1, m.Counts[view][add])
	assert.Equal(t, 1, m.Counts[view][view])
	// No cross-session transitions: 3 events in one session plus 2 in the
	// other yield exactly 2 transitions total.
	assert.Len(t, m.Transitions, 2)

	assert.Equal(t, 10.0, m.Transitions[0].FromPrice)
	assert.Equal(t, 10.0, m.Transitions[0].ToPrice)
}

func TestNormalizeRowsSumToOneOrStayZero(t *testing.T) {
	sessions := []ingest.Session{
		{
			Views: []ingest.ViewEvent{
				{ItemID: "X", Time: at(0)},
				{ItemID: "X", Time: at(1)},
				{ItemID: "Y", Time: at(2)},
			},
			CartEvents: []ingest.CartEvent{{ItemID: "Y", Add: 1, Time: at(3)}},
		},
	}

	m := sequence.Build(sessions, testMeta())

	for i := range m.Probabilities {
		sum := 0.0
		negative := false
		for _, p := range m.Probabilities[i] {
			sum += p
			if p < 0 || p > 1 {
				negative = true
			}
		}
		assert.False(t, negative, "row %d has out-of-range probability", i)
		if sum != 0 {
			assert.InDelta(t, 1.0, sum, 1e-9, "row %d", i)
		}
	}

	// cart_add row has no outgoing transitions and stays all-zero.
	addRow := m.Probabilities[sequence.Index(sequence.StateCartAdd)]
	for _, p := range addRow {
		assert.Zero(t, p)
	}
}

func TestLinksFromCounts(t *testing.T) {
	var counts [sequence.NumStates][sequence.NumStates]int
	view := sequence.Index(sequence.StateView)
	add := sequence.Index(sequence.StateCartAdd)
	counts[view][view] = 7
	counts[view][add] = 3

	all := sequence.LinksFromCounts(counts, false)
	require.Len(t, all, 2)

	noSelf := sequence.LinksFromCounts(counts, true)
	require.Len(t, noSelf, 1)
	assert.Equal(t, sequence.FlowLink{Source: "view", Target: "cart_add", Value: 3}, noSelf[0])
}

func TestEmptyBuild(t *testing.T) {
	m := sequence.Build(nil, ingest.ItemMeta{})
	assert.Empty(t, m.Links)
	assert.Empty(t, m.Transitions)
	assert.Len(t, m.Nodes, sequence.NumStates)
}
