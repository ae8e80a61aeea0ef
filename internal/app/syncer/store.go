package syncer

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("syncer: row not found")

// EventType mirrors the row-level change kinds the remote store emits.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one row-level change pushed by the remote store. Row carries
// the snake_case wire encoding of the affected row; for deletes it holds at
// least the id.
type ChangeEvent struct {
	Table string          `json:"table"`
	Type  EventType       `json:"type"`
	Row   json.RawMessage `json:"row"`
}

// Filter matches rows by exact column value (snake_case column names).
type Filter map[string]any

// OrderBy names the column bulk reads are sorted on.
type OrderBy struct {
	Column     string
	Descending bool
}

// SubscriptionFilter scopes a change subscription. Listing, order and message
// events are delivered to every subscriber; notification inserts only reach
// the subscriber whose NotificationUserID matches the row. An empty filter
// receives everything and is meant for infrastructure consumers that route
// per user themselves. Rebinding to a new identity means tearing the
// subscription down and creating a new one.
type SubscriptionFilter struct {
	NotificationUserID string
}

// Store is the remote collaborator holding the authoritative collections.
// Rows cross the boundary in their snake_case wire encoding.
type Store interface {
	Select(ctx context.Context, table string, filter Filter, order *OrderBy) ([]json.RawMessage, error)
	SelectOne(ctx context.Context, table, id string) (json.RawMessage, error)
	Insert(ctx context.Context, table string, rows ...json.RawMessage) error
	Update(ctx context.Context, table string, patch map[string]any, filter Filter) error
	Delete(ctx context.Context, table string, filter Filter) error

	// SubscribeChanges registers a push handler and returns its release
	// function. The handler is invoked in emission order.
	SubscribeChanges(ctx context.Context, filter SubscriptionFilter, handler func(ChangeEvent)) (unsubscribe func(), err error)
}

// Session is the authenticated identity the synchronizer binds to. The zero
// value means signed out.
type Session struct {
	UserID string
	Token  string
}

// SessionSource exposes the auth collaborator: current session, a change
// feed, and sign-out.
type SessionSource interface {
	Session(ctx context.Context) (Session, error)
	OnSessionChange(handler func(Session)) (unsubscribe func())
	SignOut(ctx context.Context) error
}
