package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeReader hands out queued messages, then blocks until ctx ends
type fakeReader struct {
	m        sync.Mutex
	messages []kafkaGo.Message
	errs     []error
	closed   bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafkaGo.Message, error) {
	f.m.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.m.Unlock()
		return kafkaGo.Message{}, err
	}
	if len(f.messages) > 0 {
		msg := f.messages[0]
		f.messages = f.messages[1:]
		f.m.Unlock()
		return msg, nil
	}
	f.m.Unlock()

	<-ctx.Done()
	return kafkaGo.Message{}, ctx.Err()
}

func (f *fakeReader) Close() error {
	f.m.Lock()
	defer f.m.Unlock()
	f.closed = true
	return nil
}

type recordingClearer struct {
	m     sync.Mutex
	users []string
	err   error
}

func (r *recordingClearer) ClearCartsFor(_ context.Context, userID string) (int, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.users = append(r.users, userID)
	return 1, r.err
}

func (r *recordingClearer) cleared() []string {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]string{}, r.users...)
}

func checkoutMessage(t *testing.T, userID string) kafkaGo.Message {
	payload, err := json.Marshal(map[string]interface{}{
		"checkout_id":  "ch-" + userID,
		"user_id":      userID,
		"total_amount": "93.75",
		"completed_at": time.Time{},
	})
	require.NoError(t, err)
	return kafkaGo.Message{
		Key:     []byte("ch-" + userID),
		Value:   payload,
		Headers: []kafkaGo.Header{{Key: "event_type", Value: []byte("checkout")}},
	}
}

func TestCheckoutConsumer_ClearsCarts(t *testing.T) {
	reader := &fakeReader{messages: []kafkaGo.Message{
		checkoutMessage(t, "42"),
		{Value: []byte("not json")},
		{Value: []byte(`{"checkout_id":"x"}`)},
		{Value: []byte(`{"user_id":"9"}`), Headers: []kafkaGo.Header{{Key: "event_type", Value: []byte("refund")}}},
		checkoutMessage(t, "7"),
	}}
	clearer := &recordingClearer{}
	c := newCheckoutConsumer(reader, clearer, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(clearer.cleared()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"42", "7"}, clearer.cleared())

	cancel()
	<-done
	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}

func TestCheckoutConsumer_RetriesAfterReadError(t *testing.T) {
	reader := &fakeReader{
		errs:     []error{errors.New("broker unavailable")},
		messages: []kafkaGo.Message{checkoutMessage(t, "42")},
	}
	clearer := &recordingClearer{}
	c := newCheckoutConsumer(reader, clearer, discardLogger())
	c.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool {
		return len(clearer.cleared()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCheckoutConsumer_HandleErrors(t *testing.T) {
	clearer := &recordingClearer{err: errors.New("store down")}
	c := newCheckoutConsumer(&fakeReader{}, clearer, discardLogger())
	ctx := context.Background()

	err := c.handle(ctx, kafkaGo.Message{Value: []byte("{")})
	assert.ErrorIs(t, err, ErrMalformedEvent)

	err = c.handle(ctx, checkoutMessage(t, "42"))
	assert.ErrorContains(t, err, "store down")
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestCheckoutConsumer_Kafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka container test in short mode")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})
	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	createTopic(t, brokers[0], CheckoutTopic)

	clearer := &recordingClearer{}
	c := NewCheckoutConsumer(clearer, discardLogger(), brokers...)
	defer c.Close()

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers...),
		Topic:                  CheckoutTopic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	require.NoError(t, w.WriteMessages(ctx, checkoutMessage(t, "123")))
	require.NoError(t, w.Close())

	go c.Run(ctx)
	require.Eventually(t, func() bool {
		return len(clearer.cleared()) == 1
	}, 30*time.Second, 500*time.Millisecond)
	assert.Equal(t, []string{"123"}, clearer.cleared())
}
