package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	CheckoutTopic = "checkout-outbox"
	GroupID       = "storefront-session"

	checkoutEventType = "checkout"
)

var ErrMalformedEvent = errors.New("malformed checkout event")

// CartClearer empties every cart held for an identity.
type CartClearer interface {
	ClearCartsFor(ctx context.Context, userID string) (int, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type checkoutCompleted struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// CheckoutConsumer clears the buyer's carts for every completed checkout event.
type CheckoutConsumer struct {
	reader     messageReader
	clearer    CartClearer
	log        *slog.Logger
	retryDelay time.Duration
}

func NewCheckoutConsumer(clearer CartClearer, log *slog.Logger, brokers ...string) *CheckoutConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    CheckoutTopic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return newCheckoutConsumer(reader, clearer, log)
}

func newCheckoutConsumer(reader messageReader, clearer CartClearer, log *slog.Logger) *CheckoutConsumer {
	return &CheckoutConsumer{
		reader:     reader,
		clearer:    clearer,
		log:        log.With("component", "checkout_consumer", "topic", CheckoutTopic),
		retryDelay: time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (c *CheckoutConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("error reading message", "error", err)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		if err := c.handle(ctx, m); err != nil {
			c.log.Warn("checkout event skipped", "offset", m.Offset, "error", err)
		}
	}
}

func (c *CheckoutConsumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("close reader: %w", err)
	}
	return nil
}

func (c *CheckoutConsumer) handle(ctx context.Context, m kafka.Message) error {
	if t, ok := eventType(m); ok && t != checkoutEventType {
		return nil
	}

	var event checkoutCompleted
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.UserID == "" {
		return fmt.Errorf("%w: missing user_id", ErrMalformedEvent)
	}

	cleared, err := c.clearer.ClearCartsFor(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("clear carts for %s: %w", event.UserID, err)
	}
	c.log.Info("cart cleared after checkout",
		"checkout_id", event.CheckoutID,
		"user_id", event.UserID,
		"live_sessions", cleared)
	return nil
}

func eventType(m kafka.Message) (string, bool) {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value), true
		}
	}
	return "", false
}
