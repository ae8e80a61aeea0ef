package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"quickswap/internal/app/syncer"
)

// Bridge mirrors the store's change feed onto a Kafka topic so downstream
// services (search indexers, analytics) see every row-level change. Messages
// are keyed by table, keeping per-table ordering intact.
type Bridge struct {
	producer *Producer
	topic    string
	logger   *slog.Logger
	unsub    func()
}

func NewBridge(producer *Producer, topic string, logger *slog.Logger) *Bridge {
	return &Bridge{producer: producer, topic: topic, logger: logger}
}

// Start subscribes to the full change feed. Publish failures are logged and
// dropped; the feed must never stall the store.
func (b *Bridge) Start(ctx context.Context, store syncer.Store) error {
	unsub, err := store.SubscribeChanges(ctx, syncer.SubscriptionFilter{}, func(ev syncer.ChangeEvent) {
		payload, err := json.Marshal(ev)
		if err != nil {
			b.logger.Error("change event encode failed", "table", ev.Table, "err", err)
			return
		}
		headers := map[string]string{"event_type": string(ev.Type)}
		if err := b.producer.Publish(ctx, b.topic, ev.Table, payload, headers); err != nil {
			b.logger.Error("change event publish failed", "table", ev.Table, "err", err)
		}
	})
	if err != nil {
		return err
	}
	b.unsub = unsub
	return nil
}

func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
		b.unsub = nil
	}
}
