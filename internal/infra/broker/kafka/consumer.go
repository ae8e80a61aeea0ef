package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	"quickswap/internal/app/syncer"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// ChangeSink receives decoded change events from the topic. The realtime hub
// implements this to fan events out to clients connected on other replicas.
type ChangeSink interface {
	HandleChange(ctx context.Context, ev syncer.ChangeEvent) error
}

// ChangeHandler decodes change-feed messages and forwards them to a sink.
type ChangeHandler struct {
	Sink ChangeSink
}

func (h ChangeHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev syncer.ChangeEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return err
	}
	return h.Sink.HandleChange(ctx, ev)
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: g, handler: handler}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handler.Handle(sess.Context(), message); err != nil {
			// retry/handling delegated to handler
			continue
		}
		sess.MarkMessage(message, "")
	}
	return nil
}
