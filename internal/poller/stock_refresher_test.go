package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/persist"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/service"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/stock"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingTarget struct {
	calls atomic.Int32
	err   error
}

func (c *countingTarget) RefreshStock(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestStockRefresher_RunsPeriodically(t *testing.T) {
	target := &countingTarget{}
	r := NewStockRefresher(target, 10*time.Millisecond, 5*time.Millisecond, discardLogger())

	h := r.Start(context.Background())
	defer h.Stop()

	require.Eventually(t, func() bool {
		return target.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestStockRefresher_StopHaltsRefresh(t *testing.T) {
	target := &countingTarget{}
	r := NewStockRefresher(target, 5*time.Millisecond, 0, discardLogger())

	h := r.Start(context.Background())
	require.Eventually(t, func() bool { return target.calls.Load() >= 1 }, time.Second, time.Millisecond)

	h.Stop()
	h.Stop()
	stopped := target.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, target.calls.Load())
}

func TestStockRefresher_ParentContextStops(t *testing.T) {
	target := &countingTarget{}
	r := NewStockRefresher(target, time.Hour, 0, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	h := r.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		h.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after parent context was cancelled")
	}
	assert.Zero(t, target.calls.Load())
}

func TestStockRefresher_KeepsRunningAfterErrors(t *testing.T) {
	target := &countingTarget{err: errors.New("inventory unreachable")}
	r := NewStockRefresher(target, 5*time.Millisecond, 0, discardLogger())

	h := r.Start(context.Background())
	defer h.Stop()

	require.Eventually(t, func() bool { return target.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestNewStockRefresher_Defaults(t *testing.T) {
	r := NewStockRefresher(&countingTarget{}, 0, -time.Second, discardLogger())
	assert.Equal(t, 30*time.Second, r.interval)
	assert.Equal(t, time.Duration(0), r.jitter)
	assert.Equal(t, 30*time.Second, r.nextDelay())
}

func TestStockRefresher_UpdatesFavourites(t *testing.T) {
	ctx := context.Background()
	slots := store.NewMemoryStore(0)
	w := persist.NewWriter(slots, discardLogger())
	defer w.Close(ctx)
	adapter := persist.NewAdapter[domain.FavouriteItem](persist.CollectionFavourites, slots, w, discardLogger())

	lookup := stock.NewStaticLookup()
	require.NoError(t, lookup.SetStock("9", 1, true))
	favourites := service.NewFavouritesService(ctx, adapter, lookup, persist.GuestNamespace, discardLogger())
	_, err := favourites.AddToFavourites(ctx, domain.Product{ID: "9"})
	require.NoError(t, err)

	h := NewStockRefresher(favourites, 5*time.Millisecond, 0, discardLogger()).Start(ctx)
	defer h.Stop()

	require.NoError(t, lookup.SetStock("9", 0, false))
	require.Eventually(t, func() bool {
		item, ok := favourites.Item("9")
		return ok && item.StockCount == 0 && !item.InStock
	}, time.Second, 5*time.Millisecond)
	assert.True(t, favourites.IsFavourite("9"))
}
