package poller

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Refreshable is anything whose stock snapshot can be re-queried in one pass.
type Refreshable interface {
	RefreshStock(ctx context.Context) (int, error)
}

type StockRefresher struct {
	target   Refreshable
	interval time.Duration
	jitter   time.Duration
	log      *slog.Logger
}

func NewStockRefresher(target Refreshable, interval, jitter time.Duration, log *slog.Logger) *StockRefresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if jitter < 0 {
		jitter = 0
	}
	return &StockRefresher{
		target:   target,
		interval: interval,
		jitter:   jitter,
		log:      log,
	}
}

// Handle controls one running refresh loop.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop cancels the loop and waits for an in-flight refresh to return. Safe to call twice.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Start runs refresh passes until ctx ends or the handle is stopped.
func (r *StockRefresher) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		r.Run(ctx)
	}()

	return h
}

func (r *StockRefresher) Run(ctx context.Context) {
	timer := time.NewTimer(r.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			r.refresh(ctx)
			timer.Reset(r.nextDelay())
		case <-ctx.Done():
			return
		}
	}
}

func (r *StockRefresher) refresh(ctx context.Context) {
	changed, err := r.target.RefreshStock(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Warn("stock refresh failed", "error", err)
		}
		return
	}
	if changed > 0 {
		r.log.Debug("stock refreshed", "changed", changed)
	}
}

func (r *StockRefresher) nextDelay() time.Duration {
	if r.jitter == 0 {
		return r.interval
	}
	return r.interval + time.Duration(rand.Int63n(int64(r.jitter)))
}
