package persist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingStore counts writes and can be told to fail them
type recordingStore struct {
	*store.MemoryStore
	m      sync.Mutex
	puts   int
	putErr error
}

func (r *recordingStore) Put(ctx context.Context, key string, data []byte) error {
	r.m.Lock()
	r.puts++
	err := r.putErr
	r.m.Unlock()
	if err != nil {
		return err
	}
	return r.MemoryStore.Put(ctx, key, data)
}

func (r *recordingStore) putCount() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.puts
}

func setupAdapter(t *testing.T, s store.Store) (*Adapter[entry], *Writer) {
	w := NewWriter(s, discardLogger())
	t.Cleanup(func() { _ = w.Close(context.Background()) })
	return NewAdapter[entry](CollectionCart, s, w, discardLogger()), w
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "cart_guest", SlotKey(CollectionCart, Namespace("")))
	assert.Equal(t, "favourites_u-17", SlotKey(CollectionFavourites, Namespace("u-17")))
	assert.NotEqual(t, SlotKey(CollectionCart, Namespace("")), SlotKey(CollectionCart, Namespace("17")))
}

func TestAdapter_RoundTrip(t *testing.T) {
	s := store.NewMemoryStore(0)
	a, _ := setupAdapter(t, s)
	ctx := context.Background()

	items := []entry{{ID: "c", Count: 3}, {ID: "a", Count: 1}, {ID: "b", Count: 2}}
	require.NoError(t, a.Save("42", items))
	require.NoError(t, a.Flush(ctx))

	assert.Equal(t, items, a.Load(ctx, "42"))
}

func TestAdapter_RoundTripCartLines(t *testing.T) {
	s := store.NewMemoryStore(0)
	w := NewWriter(s, discardLogger())
	t.Cleanup(func() { _ = w.Close(context.Background()) })
	a := NewAdapter[domain.CartLine](CollectionCart, s, w, discardLogger())
	ctx := context.Background()

	was := decimal.RequireFromString("249.99")
	lines := []domain.CartLine{
		{ID: "l-2", ProductID: "9", Name: "Glass Cleaner", Price: decimal.RequireFromString("199.95"), OriginalPrice: &was, Quantity: 3, SKU: "GC-9", ImageURL: "/img/9.png"},
		{ID: "l-1", ProductID: "4", Name: "Mop", Price: decimal.RequireFromString("0.10"), Quantity: 1},
	}
	require.NoError(t, a.Save("42", lines))
	require.NoError(t, a.Flush(ctx))

	got := a.Load(ctx, "42")
	require.Len(t, got, 2)
	for i, want := range lines {
		assert.Equal(t, want.ID, got[i].ID)
		assert.Equal(t, want.ProductID, got[i].ProductID)
		assert.Equal(t, want.Name, got[i].Name)
		assert.Equal(t, want.Quantity, got[i].Quantity)
		assert.Equal(t, want.SKU, got[i].SKU)
		assert.Equal(t, want.ImageURL, got[i].ImageURL)
		assert.True(t, want.Price.Equal(got[i].Price), "price %s != %s", want.Price, got[i].Price)
		assert.True(t, want.LineTotal().Equal(got[i].LineTotal()))
	}
	require.NotNil(t, got[0].OriginalPrice)
	assert.Equal(t, "249.99", got[0].OriginalPrice.String())
	assert.Nil(t, got[1].OriginalPrice)
	assert.Equal(t, "0.1", got[1].Price.String())
}

func TestAdapter_LoadMissingSlot(t *testing.T) {
	a, _ := setupAdapter(t, store.NewMemoryStore(0))

	items := a.Load(context.Background(), GuestNamespace)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestAdapter_LoadMalformedSlot(t *testing.T) {
	s := store.NewMemoryStore(0)
	a, _ := setupAdapter(t, s)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, SlotKey(CollectionCart, GuestNamespace), []byte(`[{"id":"x",`)))
	assert.Empty(t, a.Load(ctx, GuestNamespace))

	require.NoError(t, s.Put(ctx, SlotKey(CollectionCart, GuestNamespace), []byte(`null`)))
	assert.Empty(t, a.Load(ctx, GuestNamespace))
}

func TestAdapter_NamespacesAreDisjoint(t *testing.T) {
	s := store.NewMemoryStore(0)
	a, _ := setupAdapter(t, s)
	ctx := context.Background()

	require.NoError(t, a.Save(GuestNamespace, []entry{{ID: "guest-line"}}))
	require.NoError(t, a.Save("42", []entry{{ID: "user-line"}}))
	require.NoError(t, a.Flush(ctx))

	assert.Equal(t, []entry{{ID: "guest-line"}}, a.Load(ctx, GuestNamespace))
	assert.Equal(t, []entry{{ID: "user-line"}}, a.Load(ctx, "42"))
}

func TestAdapter_ClearPersistsEmptyArray(t *testing.T) {
	s := store.NewMemoryStore(0)
	a, _ := setupAdapter(t, s)
	ctx := context.Background()

	require.NoError(t, a.Save("42", []entry{{ID: "x"}}))
	require.NoError(t, a.Clear("42"))
	require.NoError(t, a.Flush(ctx))

	raw, err := s.Get(ctx, SlotKey(CollectionCart, "42"))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestAdapter_SaveUnmarshalable(t *testing.T) {
	s := store.NewMemoryStore(0)
	w := NewWriter(s, discardLogger())
	t.Cleanup(func() { _ = w.Close(context.Background()) })
	a := NewAdapter[func()](CollectionCart, s, w, discardLogger())

	err := a.Save("42", []func(){func() {}})
	assert.ErrorContains(t, err, "marshal cart failed")
}

func TestWriter_QuotaFailureIsDropped(t *testing.T) {
	s := store.NewMemoryStore(8)
	a, _ := setupAdapter(t, s)
	ctx := context.Background()

	err := a.Save("42", []entry{{ID: "much-too-long-for-the-quota"}})
	require.NoError(t, err, "quota failures are never reported to the caller")
	require.NoError(t, a.Flush(ctx))

	assert.Empty(t, a.Load(ctx, "42"))
}

func TestWriter_StoreErrorIsLoggedNotPropagated(t *testing.T) {
	rs := &recordingStore{MemoryStore: store.NewMemoryStore(0), putErr: errors.New("connection refused")}
	a, _ := setupAdapter(t, rs)

	require.NoError(t, a.Save("42", []entry{{ID: "x"}}))
	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, 1, rs.putCount())
}

func TestWriter_LastWriteWins(t *testing.T) {
	rs := &recordingStore{MemoryStore: store.NewMemoryStore(0)}
	a, _ := setupAdapter(t, rs)
	ctx := context.Background()

	for i := 1; i <= 50; i++ {
		require.NoError(t, a.Save("42", []entry{{ID: "x", Count: i}}))
	}
	require.NoError(t, a.Flush(ctx))

	assert.Equal(t, []entry{{ID: "x", Count: 50}}, a.Load(ctx, "42"))
	assert.LessOrEqual(t, rs.putCount(), 50)
}

func TestWriter_FlushWithNothingPending(t *testing.T) {
	w := NewWriter(store.NewMemoryStore(0), discardLogger())
	defer w.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, w.Flush(ctx))
}

func TestWriter_EnqueueAfterClose(t *testing.T) {
	w := NewWriter(store.NewMemoryStore(0), discardLogger())
	require.NoError(t, w.Close(context.Background()))

	assert.ErrorIs(t, w.Enqueue("cart_guest", []byte("[]")), ErrWriterClosed)
	assert.NoError(t, w.Close(context.Background()))
}

func TestWriter_CloseFlushes(t *testing.T) {
	s := store.NewMemoryStore(0)
	w := NewWriter(s, discardLogger())

	require.NoError(t, w.Enqueue("cart_guest", []byte(`[{"id":"a"}]`)))
	require.NoError(t, w.Close(context.Background()))

	data, err := s.Get(context.Background(), "cart_guest")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, string(data))
}
