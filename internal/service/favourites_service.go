package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/stock"
)

type FavouritesStore interface {
	Load(ctx context.Context, namespace string) []domain.FavouriteItem
	Save(namespace string, items []domain.FavouriteItem) error
	Flush(ctx context.Context) error
}

// FavouritesService keeps a stock-aware wish list, at most one item per product.
type FavouritesService struct {
	mu        sync.RWMutex
	namespace string
	items     []domain.FavouriteItem

	store    FavouritesStore
	lookup   stock.Lookup
	log      *slog.Logger
	now      func() time.Time
	notifier notifier
}

func NewFavouritesService(ctx context.Context, store FavouritesStore, lookup stock.Lookup, namespace string, log *slog.Logger) *FavouritesService {
	s := &FavouritesService{
		namespace: namespace,
		store:     store,
		lookup:    lookup,
		log:       log.With("aggregate", "favourites"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.items = store.Load(ctx, namespace)
	return s
}

// AddToFavourites reports false without changing anything when the product is
// already saved. Otherwise it snapshots the product with its current stock.
func (s *FavouritesService) AddToFavourites(ctx context.Context, product domain.Product) (bool, error) {
	if product.ID == "" {
		return false, ErrInvalidProduct
	}
	if s.IsFavourite(product.ID) {
		return false, nil
	}

	info := s.stockFor(ctx, product.ID)

	s.mu.Lock()
	// the lookup ran unlocked; another add may have won meanwhile
	if s.indexByProduct(product.ID) >= 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.items = append(s.items, domain.NewFavourite(product, info, s.now()))
	err := s.persistLocked()
	s.mu.Unlock()

	s.notifier.notify()
	return true, err
}

// RemoveFromFavourites is a no-op for products not in the list.
func (s *FavouritesService) RemoveFromFavourites(productID string) error {
	s.mu.Lock()
	i := s.indexByProduct(productID)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	s.items = slices.Delete(s.items, i, i+1)
	err := s.persistLocked()
	s.mu.Unlock()

	s.notifier.notify()
	return err
}

func (s *FavouritesService) IsFavourite(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexByProduct(productID) >= 0
}

func (s *FavouritesService) ClearFavourites() error {
	s.mu.Lock()
	s.items = []domain.FavouriteItem{}
	err := s.persistLocked()
	s.mu.Unlock()

	s.notifier.notify()
	return err
}

// MergeItems appends items for products not yet saved, keeping their
// original snapshot and AddedAt. It reports how many were appended.
func (s *FavouritesService) MergeItems(items []domain.FavouriteItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	appended := 0
	for _, item := range items {
		if item.ProductID == "" || s.indexByProduct(item.ProductID) >= 0 {
			continue
		}
		s.items = append(s.items, item)
		appended++
	}
	if appended == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	err := s.persistLocked()
	s.mu.Unlock()

	s.notifier.notify()
	return appended, err
}

// UpdateStockStatus rewrites only the stock fields of one item and reports
// whether they changed. Unknown products are ignored.
func (s *FavouritesService) UpdateStockStatus(productID string, info domain.StockInfo) bool {
	if info.StockCount < 0 {
		info.StockCount = 0
	}

	s.mu.Lock()
	i := s.indexByProduct(productID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	checked := s.now()
	s.items[i].StockCheckedAt = &checked
	if !s.items[i].StockDiffers(info) {
		s.mu.Unlock()
		return false
	}
	s.items[i].StockCount = info.StockCount
	s.items[i].InStock = info.InStock
	_ = s.persistLocked()
	s.mu.Unlock()

	s.notifier.notify()
	return true
}

// RefreshStock queries stock for every held item and applies the changes.
// Items are never removed by a refresh, whatever their stock.
func (s *FavouritesService) RefreshStock(ctx context.Context) (int, error) {
	ids := s.productIDs()
	if len(ids) == 0 {
		return 0, nil
	}

	stocks, err := s.lookup.GetStock(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("stock refresh failed: %w", err)
	}

	changed := 0
	for _, id := range ids {
		if s.UpdateStockStatus(id, stock.Resolve(stocks, id)) {
			changed++
		}
	}
	return changed, nil
}

func (s *FavouritesService) Items() []domain.FavouriteItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *FavouritesService) Item(productID string) (domain.FavouriteItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexByProduct(productID); i >= 0 {
		return s.items[i], true
	}
	return domain.FavouriteItem{}, false
}

func (s *FavouritesService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *FavouritesService) Namespace() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namespace
}

func (s *FavouritesService) Reload(ctx context.Context, namespace string) {
	items := s.store.Load(ctx, namespace)

	s.mu.Lock()
	s.namespace = namespace
	s.items = items
	s.mu.Unlock()

	s.notifier.notify()
}

func (s *FavouritesService) Flush(ctx context.Context) error {
	return s.store.Flush(ctx)
}

func (s *FavouritesService) Subscribe(fn func()) func() {
	return s.notifier.subscribe(fn)
}

// stockFor never fails: a miss or a failing lookup both read as out of stock.
func (s *FavouritesService) stockFor(ctx context.Context, productID string) domain.StockInfo {
	stocks, err := s.lookup.GetStock(ctx, []string{productID})
	if err != nil {
		s.log.Warn("stock lookup failed, defaulting to out of stock", "product_id", productID, "error", err)
		return domain.OutOfStock(productID)
	}
	return stock.Resolve(stocks, productID)
}

func (s *FavouritesService) productIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.items))
	for i, item := range s.items {
		ids[i] = item.ProductID
	}
	return ids
}

func (s *FavouritesService) persistLocked() error {
	if err := s.store.Save(s.namespace, slices.Clone(s.items)); err != nil {
		s.log.Error("favourites persistence failed", "namespace", s.namespace, "error", err)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

func (s *FavouritesService) indexByProduct(productID string) int {
	return slices.IndexFunc(s.items, func(f domain.FavouriteItem) bool { return f.ProductID == productID })
}
