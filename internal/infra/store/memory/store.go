// Package memory implements the remote store contract on process-local maps.
// It backs the demo deployment and the synchronizer tests; the change feed is
// delivered in emission order, matching what the hosted backend guarantees.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"quickswap/internal/app/syncer"
)

type row map[string]any

type subscriber struct {
	id      int
	filter  syncer.SubscriptionFilter
	handler func(syncer.ChangeEvent)
}

// Store keeps every table as an ordered slice of snake_case rows, keyed
// conceptually by the "id" column.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]row

	subMu  sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

func NewStore() *Store {
	return &Store{
		tables: make(map[string][]row),
		subs:   make(map[int]*subscriber),
	}
}

func decodeRow(raw json.RawMessage) (row, error) {
	var r row
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("memory: decode row: %w", err)
	}
	return r, nil
}

func encodeRow(r row) json.RawMessage {
	raw, _ := json.Marshal(r)
	return raw
}

func rowID(r row) string {
	if id, ok := r["id"].(string); ok {
		return id
	}
	return ""
}

func matches(r row, filter syncer.Filter) bool {
	for col, want := range filter {
		if fmt.Sprint(r[col]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// orderValue reads a sortable column; numeric wire values arrive as float64
// through JSON.
func orderValue(r row, col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func (s *Store) Select(ctx context.Context, table string, filter syncer.Filter, order *syncer.OrderBy) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	rows := make([]row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		if matches(r, filter) {
			rows = append(rows, r)
		}
	}
	s.mu.RUnlock()

	if order != nil {
		sort.SliceStable(rows, func(i, j int) bool {
			if order.Descending {
				return orderValue(rows[i], order.Column) > orderValue(rows[j], order.Column)
			}
			return orderValue(rows[i], order.Column) < orderValue(rows[j], order.Column)
		})
	}

	out := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		out[i] = encodeRow(r)
	}
	return out, nil
}

func (s *Store) SelectOne(ctx context.Context, table, id string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.tables[table] {
		if rowID(r) == id {
			return encodeRow(r), nil
		}
	}
	return nil, syncer.ErrNotFound
}

func (s *Store) Insert(ctx context.Context, table string, rows ...json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	inserted := make([]row, 0, len(rows))
	s.mu.Lock()
	for _, raw := range rows {
		r, err := decodeRow(raw)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.tables[table] = append(s.tables[table], r)
		inserted = append(inserted, r)
	}
	s.mu.Unlock()

	for _, r := range inserted {
		s.emit(syncer.ChangeEvent{Table: table, Type: syncer.EventInsert, Row: encodeRow(r)})
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table string, patch map[string]any, filter syncer.Filter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var updated []row
	s.mu.Lock()
	for i, r := range s.tables[table] {
		if !matches(r, filter) {
			continue
		}
		// Copy-on-write: rows already handed to readers stay frozen.
		next := make(row, len(r)+len(patch))
		for col, v := range r {
			next[col] = v
		}
		for col, v := range patch {
			next[col] = v
		}
		s.tables[table][i] = next
		updated = append(updated, next)
	}
	s.mu.Unlock()

	for _, r := range updated {
		s.emit(syncer.ChangeEvent{Table: table, Type: syncer.EventUpdate, Row: encodeRow(r)})
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table string, filter syncer.Filter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var deleted []row
	s.mu.Lock()
	kept := s.tables[table][:0]
	for _, r := range s.tables[table] {
		if matches(r, filter) {
			deleted = append(deleted, r)
			continue
		}
		kept = append(kept, r)
	}
	s.tables[table] = kept
	s.mu.Unlock()

	for _, r := range deleted {
		s.emit(syncer.ChangeEvent{Table: table, Type: syncer.EventDelete, Row: encodeRow(r)})
	}
	return nil
}

func (s *Store) SubscribeChanges(ctx context.Context, filter syncer.SubscriptionFilter, handler func(syncer.ChangeEvent)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = &subscriber{id: id, filter: filter, handler: handler}
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}, nil
}

// SubscriberCount reports live subscriptions; used to verify teardown.
func (s *Store) SubscriberCount() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

// emit fans an event out to every matching subscriber, outside the table
// lock so handlers may call back into the store.
func (s *Store) emit(ev syncer.ChangeEvent) {
	s.subMu.Lock()
	targets := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		targets = append(targets, sub)
	}
	s.subMu.Unlock()

	var userID string
	if ev.Table == "notifications" {
		var payload struct {
			UserID string `json:"user_id"`
		}
		_ = json.Unmarshal(ev.Row, &payload)
		userID = payload.UserID
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })
	for _, sub := range targets {
		if ev.Table == "notifications" && sub.filter.NotificationUserID != "" && sub.filter.NotificationUserID != userID {
			continue
		}
		sub.handler(ev)
	}
}

var _ syncer.Store = (*Store)(nil)
