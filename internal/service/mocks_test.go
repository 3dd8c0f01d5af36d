package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/persist"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/stock"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCartStore records saves and can be told to fail them
type mockCartStore struct {
	m       sync.RWMutex
	loaded  map[string][]domain.CartLine
	saved   map[string][]domain.CartLine
	saves   int
	saveErr error
}

func (m *mockCartStore) Load(_ context.Context, namespace string) []domain.CartLine {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]domain.CartLine{}, m.loaded[namespace]...)
}

func (m *mockCartStore) Save(namespace string, lines []domain.CartLine) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.saved == nil {
		m.saved = make(map[string][]domain.CartLine)
	}
	m.saved[namespace] = lines
	return nil
}

func (m *mockCartStore) Flush(context.Context) error {
	return nil
}

func (m *mockCartStore) savedLines(namespace string) []domain.CartLine {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.saved[namespace]
}

// failingLookup always errors
type failingLookup struct{}

func (failingLookup) GetStock(context.Context, []string) (map[string]domain.StockInfo, error) {
	return nil, errors.New("inventory unreachable")
}

type testStores struct {
	slots      *store.MemoryStore
	writer     *persist.Writer
	cart       *persist.Adapter[domain.CartLine]
	favourites *persist.Adapter[domain.FavouriteItem]
}

func setupStores(t *testing.T) testStores {
	slots := store.NewMemoryStore(0)
	w := persist.NewWriter(slots, discardLogger())
	t.Cleanup(func() { _ = w.Close(context.Background()) })

	return testStores{
		slots:      slots,
		writer:     w,
		cart:       persist.NewAdapter[domain.CartLine](persist.CollectionCart, slots, w, discardLogger()),
		favourites: persist.NewAdapter[domain.FavouriteItem](persist.CollectionFavourites, slots, w, discardLogger()),
	}
}

func setupLookup(t *testing.T, stocks ...domain.StockInfo) *stock.StaticLookup {
	l := stock.NewStaticLookup()
	for _, s := range stocks {
		require.NoError(t, l.SetStock(s.ProductID, s.StockCount, s.InStock))
	}
	return l
}

func product(id string, price string) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.RequireFromString(price),
		SKU:      "SKU-" + id,
		ImageURL: "https://cdn.example.com/" + id + ".png",
		Brand:    "Best Brightness",
		Category: "Cleaning",
		Rating:   4.5,
	}
}
