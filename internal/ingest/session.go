// Package ingest normalizes raw tracking, listing, and category documents
// into typed sessions and an item metadata table. It is the only consumer of
// the rawdoc extractors; everything downstream sees typed values.
package ingest

import (
	"strings"
	"time"

	"shoplens/internal/rawdoc"
)

// ViewEvent is a single product view inside a session.
type ViewEvent struct {
	ItemID string    `json:"itemId"`
	Time   time.Time `json:"time"`
}

// CartEvent is a cart or wishlist action inside a session. Add and Remove are
// 0/1 flags; a raw document carrying a "deleted" marker is expanded into an
// add event at creation time plus a matching remove event at update time.
type CartEvent struct {
	ItemID string    `json:"itemId"`
	Add    int       `json:"add"`
	Remove int       `json:"remove"`
	Time   time.Time `json:"time"`
}

// Session is one customer visit. Created once during ingestion and treated as
// read-only by every aggregator.
type Session struct {
	ID          string      `json:"id"`
	VisitorID   string      `json:"visitorId"`
	Country     string      `json:"country"`
	Timestamp   time.Time   `json:"timestamp"`
	NViews      int         `json:"nViews"`
	NCartAdd    int         `json:"nCartAdd"`
	NCartRemove int         `json:"nCartRemove"`
	Items       []string    `json:"items"`
	Views       []ViewEvent `json:"views"`
	CartEvents  []CartEvent `json:"cartEvents"`
	WishEvents  []CartEvent `json:"wishEvents"`
}

// NormalizeSessions converts raw tracking documents into sessions. now is the
// processing time used as the last-resort fallback for a session-level date;
// event-level dates fall back to the session's own timestamp instead. A
// malformed document yields a sparse session, never an error.
func NormalizeSessions(docs []rawdoc.Doc, now time.Time) []Session {
	sessions := make([]Session, 0, len(docs))
	for _, doc := range docs {
		sessions = append(sessions, normalizeSession(doc, now))
	}
	return sessions
}

func normalizeSession(doc rawdoc.Doc, now time.Time) Session {
	sessionID := rawdoc.ResolveID(doc)
	if sessionID == "" {
		if v, ok := rawdoc.First(doc, "sessionId", "session_id"); ok {
			sessionID = rawdoc.ResolveID(v)
		}
	}

	visitorID := ""
	if v, ok := rawdoc.First(doc, "visitorId", "visitor_id", "userId", "user"); ok {
		visitorID = rawdoc.ResolveID(v)
	}

	var sessionTime time.Time
	if v, ok := rawdoc.First(doc, "date", "timestamp", "createdAt", "created_at"); ok {
		sessionTime = rawdoc.ResolveTime(v, now.UTC())
	} else {
		sessionTime = now.UTC()
	}

	s := Session{
		ID:        sessionID,
		VisitorID: visitorID,
		Country:   strings.ToUpper(rawdoc.FirstString(doc, "countryCode", "country_code", "country")),
		Timestamp: sessionTime,
	}

	seen := make(map[string]struct{})
	touch := func(itemID string) {
		if itemID == "" {
			return
		}
		if _, ok := seen[itemID]; ok {
			return
		}
		seen[itemID] = struct{}{}
		s.Items = append(s.Items, itemID)
	}

	for _, viewDoc := range rawdoc.SliceOf(doc, "views") {
		view := ViewEvent{
			ItemID: eventItemID(viewDoc),
			Time:   eventTime(viewDoc, sessionTime),
		}
		touch(view.ItemID)
		s.Views = append(s.Views, view)
	}
	s.NViews = len(s.Views)

	for _, cartDoc := range rawdoc.SliceOf(doc, "cart") {
		for _, ev := range expandCartEvents(cartDoc, sessionTime) {
			touch(ev.ItemID)
			s.CartEvents = append(s.CartEvents, ev)
			s.NCartAdd += ev.Add
			s.NCartRemove += ev.Remove
		}
	}

	for _, wishDoc := range rawdoc.SliceOf(doc, "wishlist") {
		for _, ev := range expandCartEvents(wishDoc, sessionTime) {
			touch(ev.ItemID)
			s.WishEvents = append(s.WishEvents, ev)
		}
	}

	return s
}

func eventItemID(doc rawdoc.Doc) string {
	if v, ok := rawdoc.First(doc, "itemId", "item_id", "productId", "product_id", "item"); ok {
		return rawdoc.ResolveID(v)
	}
	return ""
}

func eventTime(doc rawdoc.Doc, sessionTime time.Time) time.Time {
	if v, ok := rawdoc.First(doc, "date", "timestamp", "createdAt", "created_at"); ok {
		return rawdoc.ResolveTime(v, sessionTime)
	}
	return sessionTime
}

// expandCartEvents turns one raw cart/wishlist entry into typed events. An
// entry flagged as deleted becomes an add at creation time and a remove at
// the update time, defaulting to the creation time when no update time
// exists. Otherwise the entry's own add/remove flags are used, with a bare
// entry counting as a single add.
func expandCartEvents(doc rawdoc.Doc, sessionTime time.Time) []CartEvent {
	itemID := eventItemID(doc)
	createdAt := eventTime(doc, sessionTime)

	deleted := false
	if v, ok := rawdoc.First(doc, "deleted", "isDeleted", "is_deleted"); ok {
		deleted = rawdoc.Bool(v)
	}

	if deleted {
		removedAt := createdAt
		if v, ok := rawdoc.First(doc, "updatedAt", "updated_at", "deletedAt", "deleted_at"); ok {
			removedAt = rawdoc.ResolveTime(v, createdAt)
		}
		return []CartEvent{
			{ItemID: itemID, Add: 1, Time: createdAt},
			{ItemID: itemID, Remove: 1, Time: removedAt},
		}
	}

	add, addPresent := rawdoc.FirstNumber(doc, "add", "added")
	remove, _ := rawdoc.FirstNumber(doc, "remove", "removed")

	ev := CartEvent{
		ItemID: itemID,
		Add:    flag(add),
		Remove: flag(remove),
		Time:   createdAt,
	}
	if !addPresent && ev.Remove == 0 {
		// A bare cart entry is an add.
		ev.Add = 1
	}
	return []CartEvent{ev}
}

func flag(n float64) int {
	if n > 0 {
		return 1
	}
	return 0
}
