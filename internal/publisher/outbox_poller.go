package publisher

import (
	"context"
	"time"

	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/nachitzaid/food4u/internal/metrics"
	"github.com/nachitzaid/food4u/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic     = "food4u.orders"
	defaultBatchSize = 100
)

// EventStore is the outbox side of the order repository.
type EventStore interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]domain.OrderEvent, error)
	MarkEventPublished(ctx context.Context, id string) error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// OutboxPoller publishes stored order events in creation order and marks
// them published. An event that fails to publish stays in the outbox and is
// picked up on the next tick.
type OutboxPoller struct {
	tick    time.Duration
	batch   int
	store   EventStore
	writer  MessageWriter
	log     *logger.Logger
	metrics *metrics.Outbox
}

func NewOutboxPoller(store EventStore, writer MessageWriter, log *logger.Logger, m *metrics.Outbox) *OutboxPoller {
	if log == nil {
		log = logger.Nop()
	}
	return &OutboxPoller{
		tick:    time.Second,
		batch:   defaultBatchSize,
		store:   store,
		writer:  writer,
		log:     log,
		metrics: m,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.store.GetUnpublishedEvents(ctx, p.batch)
	if err != nil {
		p.log.Error(ctx, "failed to fetch outbox events", err)
		return
	}

	for _, event := range events {
		evCtx := p.log.WithFields(ctx, map[string]any{
			"event_id":   event.ID,
			"event_type": event.EventType,
			"order_id":   event.AggregateID,
		})

		if err := p.publish(ctx, event); err != nil {
			p.metrics.Failed(event.EventType)
			p.log.Warn(evCtx, "failed to publish order event", err)
			// later events of the same order must not overtake this one
			return
		}
		p.metrics.Published(event.EventType)

		if err := p.store.MarkEventPublished(ctx, event.ID); err != nil {
			p.log.Error(evCtx, "failed to mark order event published", err)
			continue
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event domain.OrderEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps per-order ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
