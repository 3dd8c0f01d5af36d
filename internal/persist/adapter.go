package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/store"
)

const (
	GuestNamespace = "guest"

	CollectionCart       = "cart"
	CollectionFavourites = "favourites"
)

// SlotKey names the durable slot of one collection for one identity namespace.
// Guest and per-user slots never collide.
func SlotKey(collection, namespace string) string {
	return collection + "_" + namespace
}

// Namespace maps an identity id to its storage namespace; no identity means guest.
func Namespace(identityID string) string {
	if identityID == "" {
		return GuestNamespace
	}
	return identityID
}

// Adapter persists one collection of T as a JSON array per namespace.
type Adapter[T any] struct {
	collection string
	store      store.Store
	writer     *Writer
	log        *slog.Logger
}

func NewAdapter[T any](collection string, s store.Store, w *Writer, log *slog.Logger) *Adapter[T] {
	return &Adapter[T]{
		collection: collection,
		store:      s,
		writer:     w,
		log:        log.With("collection", collection),
	}
}

// Load never fails: an absent, unreadable or malformed slot yields an empty collection.
func (a *Adapter[T]) Load(ctx context.Context, namespace string) []T {
	key := SlotKey(a.collection, namespace)

	data, err := a.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrSlotNotFound) {
			a.log.Error("slot read failed", "slot", key, "error", err)
		}
		return []T{}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		a.log.Warn("malformed slot treated as empty", "slot", key, "error", err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// Save serializes items now and writes them in the background. Only a
// serialization failure is reported; write failures are logged by the Writer.
func (a *Adapter[T]) Save(namespace string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", a.collection, err)
	}
	return a.writer.Enqueue(SlotKey(a.collection, namespace), data)
}

func (a *Adapter[T]) Clear(namespace string) error {
	return a.Save(namespace, nil)
}

// Flush waits for this and every other pending slot write.
func (a *Adapter[T]) Flush(ctx context.Context) error {
	return a.writer.Flush(ctx)
}
