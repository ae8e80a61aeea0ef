// Package mongo backs the store contract with MongoDB collections. Writes
// emit change events to local subscribers, the same contract the in-memory
// store honors; cross-replica delivery rides the broker bridge.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quickswap/internal/app/syncer"
	"quickswap/internal/infra/wire"
)

type Client struct {
	DB *mongo.Database
}

func NewClient(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

type subscriber struct {
	filter  syncer.SubscriptionFilter
	handler func(syncer.ChangeEvent)
}

// Store implements the remote store contract over Mongo collections. Each
// table maps to a collection of the same name; the row id doubles as _id.
type Store struct {
	db     *mongo.Database
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

func NewStore(client *Client, logger *slog.Logger) *Store {
	return &Store{
		db:     client.DB,
		logger: logger,
		subs:   make(map[int]*subscriber),
	}
}

func (s *Store) Select(ctx context.Context, table string, filter syncer.Filter, order *syncer.OrderBy) ([]json.RawMessage, error) {
	opts := options.Find()
	if order != nil {
		dir := 1
		if order.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: order.Column, Value: dir}})
	}
	cur, err := s.db.Collection(table).Find(ctx, toBSONFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: select %s: %w", table, err)
	}
	defer cur.Close(ctx)

	var rows []json.RawMessage
	for cur.Next(ctx) {
		row, err := decodeRow(cur.Current)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: select %s: %w", table, err)
	}
	return rows, nil
}

func (s *Store) SelectOne(ctx context.Context, table, id string) (json.RawMessage, error) {
	raw, err := s.db.Collection(table).FindOne(ctx, bson.M{"_id": id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, syncer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: select one %s/%s: %w", table, id, err)
	}
	return decodeRow(raw)
}

func (s *Store) Insert(ctx context.Context, table string, rows ...json.RawMessage) error {
	for _, row := range rows {
		var doc map[string]any
		if err := json.Unmarshal(row, &doc); err != nil {
			return fmt.Errorf("mongo: insert %s: %w", table, err)
		}
		id, _ := doc["id"].(string)
		if id == "" {
			return fmt.Errorf("mongo: insert %s: row has no id", table)
		}
		doc["_id"] = id
		if _, err := s.db.Collection(table).InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("mongo: insert %s: %w", table, err)
		}
		s.emit(syncer.ChangeEvent{Table: table, Type: syncer.EventInsert, Row: row})
	}
	return nil
}

func (s *Store) Update(ctx context.Context, table string, patch map[string]any, filter syncer.Filter) error {
	col := s.db.Collection(table)
	ids, err := s.matchingIDs(ctx, col, filter)
	if err != nil {
		return fmt.Errorf("mongo: update %s: %w", table, err)
	}
	if len(ids) == 0 {
		return nil
	}
	set := bson.M{}
	for k, v := range patch {
		set[k] = v
	}
	if _, err := col.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("mongo: update %s: %w", table, err)
	}
	for _, id := range ids {
		row, err := s.SelectOne(ctx, table, id)
		if err != nil {
			continue
		}
		s.emit(syncer.ChangeEvent{Table: table, Type: syncer.EventUpdate, Row: row})
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table string, filter syncer.Filter) error {
	col := s.db.Collection(table)
	rows, err := s.Select(ctx, table, filter, nil)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := col.DeleteMany(ctx, toBSONFilter(filter)); err != nil {
		return fmt.Errorf("mongo: delete %s: %w", table, err)
	}
	for _, row := range rows {
		s.emit(syncer.ChangeEvent{Table: table, Type: syncer.EventDelete, Row: row})
	}
	return nil
}

func (s *Store) SubscribeChanges(_ context.Context, filter syncer.SubscriptionFilter, handler func(syncer.ChangeEvent)) (func(), error) {
	if handler == nil {
		return nil, errors.New("mongo: subscription handler is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &subscriber{filter: filter, handler: handler}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}, nil
}

func (s *Store) matchingIDs(ctx context.Context, col *mongo.Collection, filter syncer.Filter) ([]string, error) {
	cur, err := col.Find(ctx, toBSONFilter(filter), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cur.Err()
}

func (s *Store) emit(ev syncer.ChangeEvent) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	targets := make([]*subscriber, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, s.subs[id])
	}
	s.mu.Unlock()

	for _, sub := range targets {
		if skip(sub.filter, ev) {
			continue
		}
		sub.handler(ev)
	}
}

func skip(filter syncer.SubscriptionFilter, ev syncer.ChangeEvent) bool {
	if filter.NotificationUserID == "" || ev.Table != wire.TableNotifications {
		return false
	}
	var row struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(ev.Row, &row); err != nil {
		return true
	}
	return row.UserID != filter.NotificationUserID
}

func toBSONFilter(filter syncer.Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		if k == "id" {
			k = "_id"
		}
		out[k] = v
	}
	return out
}

func decodeRow(raw bson.Raw) (json.RawMessage, error) {
	var doc map[string]any
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("mongo: decode row: %w", err)
	}
	delete(doc, "_id")
	row, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("mongo: encode row: %w", err)
	}
	return row, nil
}

var _ syncer.Store = (*Store)(nil)
