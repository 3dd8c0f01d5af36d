package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/store"
)

var ErrWriterClosed = errors.New("writer is closed")

// Writer applies slot writes in the background. Writes queued for the same key
// before the worker reaches them collapse into the latest one.
type Writer struct {
	store        store.Store
	log          *slog.Logger
	writeTimeout time.Duration

	mu      sync.Mutex
	pending map[string][]byte
	order   []string
	busy    bool
	waiters []chan struct{}
	closed  bool

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewWriter(s store.Store, log *slog.Logger) *Writer {
	w := &Writer{
		store:        s,
		log:          log,
		writeTimeout: 5 * time.Second,
		pending:      make(map[string][]byte),
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w
}

// Enqueue schedules data to be written under key and returns immediately.
func (w *Writer) Enqueue(key string, data []byte) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWriterClosed
	}
	if _, queued := w.pending[key]; !queued {
		w.order = append(w.order, key)
	}
	w.pending[key] = data
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Flush blocks until every write enqueued before the call has been attempted.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.pending) == 0 && !w.busy {
		w.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	w.waiters = append(w.waiters, done)
	w.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes outstanding writes and stops the worker. Later Enqueue calls fail.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.Flush(ctx)
	close(w.stop)
	w.wg.Wait()
	return err
}

func (w *Writer) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			return
		}
	}
}

func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			w.busy = false
			waiters := w.waiters
			w.waiters = nil
			w.mu.Unlock()
			for _, ch := range waiters {
				close(ch)
			}
			return
		}
		batch := w.pending
		order := w.order
		w.pending = make(map[string][]byte)
		w.order = nil
		w.busy = true
		w.mu.Unlock()

		for _, key := range order {
			w.write(key, batch[key])
		}
	}
}

func (w *Writer) write(key string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	err := w.store.Put(ctx, key, data)
	switch {
	case err == nil:
		return
	case errors.Is(err, store.ErrQuotaExceeded):
		w.log.Warn("slot write dropped, storage quota exceeded", "slot", key, "bytes", len(data))
	default:
		w.log.Error("slot write failed", "slot", key, "error", err)
	}
}
