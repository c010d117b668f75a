// Package sequence builds the ordered per-session event stream and the
// global transition model over the fixed five-state event set.
package sequence

import (
	"sort"
	"time"

	"shoplens/internal/ingest"
)

// State is one of the five event types in the transition model.
type State string

// The fixed state set. The array order defines matrix row/column indices.
const (
	StateCartAdd    State = "cart_add"
	StateCartRemove State = "cart_remove"
	StateView       State = "view"
	StateWishAdd    State = "wishlist_add"
	StateWishRemove State = "wishlist_remove"
)

// NumStates is the size of the transition matrix.
const NumStates = 5

// States lists all states in matrix index order.
var States = [NumStates]State{StateCartAdd, StateCartRemove, StateView, StateWishAdd, StateWishRemove}

var stateIndex = map[State]int{
	StateCartAdd:    0,
	StateCartRemove: 1,
	StateView:       2,
	StateWishAdd:    3,
	StateWishRemove: 4,
}

// Index returns the matrix index for a state, -1 for unknown states.
func Index(s State) int {
	if i, ok := stateIndex[s]; ok {
		return i
	}
	return -1
}

// Event is a single timestamped action tagged with the acting item's price
// at evaluation time. Derived during model building, never persisted.
type Event struct {
	Type   State     `json:"type"`
	ItemID string    `json:"itemId"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

// Transition is one observed adjacent event pair within a session stream,
// with pricing context for the band builders.
type Transition struct {
	From      State   `json:"from"`
	To        State   `json:"to"`
	FromPrice float64 `json:"fromPrice"`
	ToPrice   float64 `json:"toPrice"`
}

// FlowLink is a weighted edge of the flow graph.
type FlowLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Value  int    `json:"value"`
}

// Model is the global transition model: the 5x5 count matrix, its
// row-normalized probabilities, and the flow graph derived from it. The raw
// event and transition lists are kept for the price-band and price-sample
// builders but are not serialized.
type Model struct {
	Counts        [NumStates][NumStates]int     `json:"counts"`
	Probabilities [NumStates][NumStates]float64 `json:"probabilities"`
	Nodes         []string                      `json:"nodes"`
	Links         []FlowLink                    `json:"links"`

	Events      []Event      `json:"-"`
	Transitions []Transition `json:"-"`
}

// SessionStream merges a session's views, cart events, and wishlist events
// into one chronologically sorted event stream. Events with identical
// timestamps keep their source order (views, then cart, then wishlist).
func SessionStream(s ingest.Session, meta ingest.ItemMeta) []Event {
	stream := make([]Event, 0, len(s.Views)+len(s.CartEvents)+len(s.WishEvents))

	for _, v := range s.Views {
		stream = append(stream, Event{Type: StateView, ItemID: v.ItemID, Price: meta.PriceOf(v.ItemID), Time: v.Time})
	}
	for _, c := range s.CartEvents {
		if c.Add > 0 {
			stream = append(stream, Event{Type: StateCartAdd, ItemID: c.ItemID, Price: meta.PriceOf(c.ItemID), Time: c.Time})
		}
		if c.Remove > 0 {
			stream = append(stream, Event{Type: StateCartRemove, ItemID: c.ItemID, Price: meta.PriceOf(c.ItemID), Time: c.Time})
		}
	}
	for _, w := range s.WishEvents {
		if w.Add > 0 {
			stream = append(stream, Event{Type: StateWishAdd, ItemID: w.ItemID, Price: meta.PriceOf(w.ItemID), Time: w.Time})
		}
		if w.Remove > 0 {
			stream = append(stream, Event{Type: StateWishRemove, ItemID: w.ItemID, Price: meta.PriceOf(w.ItemID), Time: w.Time})
		}
	}

	sort.SliceStable(stream, func(i, j int) bool {
		return stream[i].Time.Before(stream[j].Time)
	})
	return stream
}

// Build computes the transition model over all sessions. Sessions and meta
// are read-only.
func Build(sessions []ingest.Session, meta ingest.ItemMeta) *Model {
	m := &Model{Nodes: NodeNames()}

	for _, s := range sessions {
		stream := SessionStream(s, meta)
		m.Events = append(m.Events, stream...)

		for i := 0; i+1 < len(stream); i++ {
			from, to := stream[i], stream[i+1]
			m.Counts[Index(from.Type)][Index(to.Type)]++
			m.Transitions = append(m.Transitions, Transition{
				From:      from.Type,
				To:        to.Type,
				FromPrice: from.Price,
				ToPrice:   to.Price,
			})
		}
	}

	m.Probabilities = Normalize(m.Counts)
	m.Links = LinksFromCounts(m.Counts, false)
	return m
}

// Normalize row-normalizes a count matrix into probabilities. Rows with a
// zero total stay all-zero.
func Normalize(counts [NumStates][NumStates]int) [NumStates][NumStates]float64 {
	var probs [NumStates][NumStates]float64
	for i := range counts {
		total := 0
		for _, c := range counts[i] {
			total += c
		}
		if total == 0 {
			continue
		}
		for j, c := range counts[i] {
			probs[i][j] = float64(c) / float64(total)
		}
	}
	return probs
}

// LinksFromCounts emits one link per non-zero matrix cell. With
// excludeSelfLoops set, diagonal cells are skipped; reprojected flow graphs
// must stay acyclic.
func LinksFromCounts(counts [NumStates][NumStates]int, excludeSelfLoops bool) []FlowLink {
	links := make([]FlowLink, 0, NumStates*NumStates)
	for i := range counts {
		for j, c := range counts[i] {
			if c == 0 {
				continue
			}
			if excludeSelfLoops && i == j {
				continue
			}
			links = append(links, FlowLink{
				Source: string(States[i]),
				Target: string(States[j]),
				Value:  c,
			})
		}
	}
	return links
}

// NodeNames returns the five state names in matrix index order.
func NodeNames() []string {
	nodes := make([]string, NumStates)
	for i, s := range States {
		nodes[i] = string(s)
	}
	return nodes
}
