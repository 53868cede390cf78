package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/nachitzaid/food4u/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// CartClearer empties carts that were checked out on another instance.
type CartClearer interface {
	ClearStale(ctx context.Context, userID string, placedAt time.Time) bool
}

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

var errBadPayload = errors.New("invalid order event payload")

// NewKafkaReader joins groupID on topic. Every instance should use its own
// group so each one sees every order.
func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

// Poller consumes order events and drops the buyer's stale cart.
type Poller struct {
	reader  MessageReader
	carts   CartClearer
	log     *logger.Logger
	backoff time.Duration
}

func NewPoller(reader MessageReader, carts CartClearer, log *logger.Logger) *Poller {
	if log == nil {
		log = logger.Nop()
	}
	return &Poller{reader: reader, carts: carts, log: log, backoff: time.Second}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.getMessageAndClearCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn(context.Background(), "error closing order event reader", err)
	}
}

func (p *Poller) getMessageAndClearCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Warn(ctx, "error reading order event", err)
		select {
		case <-time.After(p.backoff):
		case <-ctx.Done():
		}
		return
	}

	if err := p.handle(ctx, m); err != nil {
		p.log.Warn(p.log.WithField(ctx, "offset", m.Offset), "skipping order event", err)
	}
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) error {
	if eventType(m) != domain.EventOrderPlaced {
		return nil
	}

	var payload domain.OrderEventPayload
	if err := json.Unmarshal(m.Value, &payload); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	if payload.UserID == "" {
		return fmt.Errorf("%w: missing user_id", errBadPayload)
	}

	if p.carts.ClearStale(ctx, payload.UserID, payload.At) {
		p.log.Info(p.log.WithFields(ctx, map[string]any{
			"user_id":  payload.UserID,
			"order_id": payload.OrderID,
		}), "cleared cart after order placed elsewhere")
	}
	return nil
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
