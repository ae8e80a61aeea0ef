// Package realtime fans the store's change feed out to connected websocket
// clients. Listing, order and message changes go to every client; notification
// inserts are routed only to the connection of the user they belong to.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"quickswap/internal/app/syncer"
	"quickswap/internal/infra/wire"
)

type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	unsub func()
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
}

// Start subscribes the hub to the local store's change feed. The empty
// subscription filter delivers every event; the hub does the per-user routing.
func (h *Hub) Start(ctx context.Context, store syncer.Store) error {
	unsub, err := store.SubscribeChanges(ctx, syncer.SubscriptionFilter{}, func(ev syncer.ChangeEvent) {
		h.dispatch(ev)
	})
	if err != nil {
		return err
	}
	h.unsub = unsub
	return nil
}

func (h *Hub) Stop() {
	if h.unsub != nil {
		h.unsub()
		h.unsub = nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*Client]struct{})
}

// HandleChange lets the hub consume change events replayed from the broker,
// so clients connected to this replica see changes made through another one.
func (h *Hub) HandleChange(_ context.Context, ev syncer.ChangeEvent) error {
	h.dispatch(ev)
	return nil
}

func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("realtime client attached", "user_id", c.userID)
}

func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
		h.logger.Debug("realtime client detached", "user_id", c.userID)
	}
}

// ClientCount reports attached connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) dispatch(ev syncer.ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("change event encode failed", "table", ev.Table, "err", err)
		return
	}
	targetUser := ""
	if ev.Table == wire.TableNotifications {
		var row struct {
			UserID string `json:"user_id"`
		}
		if err := json.Unmarshal(ev.Row, &row); err != nil || row.UserID == "" {
			return
		}
		targetUser = row.UserID
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if targetUser != "" && c.userID != targetUser {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// slow consumer, drop it rather than stall the feed
			go h.detach(c)
		}
	}
}
