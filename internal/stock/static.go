package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
)

// StaticLookup serves stock from memory. It stands in for the live inventory
// query and is what tests and local runs use.
type StaticLookup struct {
	mu     sync.RWMutex
	stocks map[string]domain.StockInfo // productID -> stock info
}

func NewStaticLookup() *StaticLookup {
	return &StaticLookup{
		stocks: make(map[string]domain.StockInfo),
	}
}

// LoadStaticLookup seeds a lookup from a JSON array of {product_id, stock_count, in_stock}.
func LoadStaticLookup(path string) (*StaticLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock seed: %w", err)
	}

	var seed []domain.StockInfo
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse stock seed: %w", err)
	}

	l := NewStaticLookup()
	for _, s := range seed {
		if err := l.SetStock(s.ProductID, s.StockCount, s.InStock); err != nil {
			return nil, fmt.Errorf("product %s: %w", s.ProductID, err)
		}
	}
	return l, nil
}

func (l *StaticLookup) GetStock(ctx context.Context, productIDs []string) (map[string]domain.StockInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]domain.StockInfo, len(productIDs))
	for _, id := range productIDs {
		if s, ok := l.stocks[id]; ok {
			result[id] = s
		}
	}
	return result, nil
}

// SetStock records the stock for a product, replacing any previous value.
func (l *StaticLookup) SetStock(productID string, count int, inStock bool) error {
	if count < 0 {
		return ErrInvalidStock
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stocks[productID] = domain.StockInfo{
		ProductID:  productID,
		StockCount: count,
		InStock:    inStock,
	}
	return nil
}

func (l *StaticLookup) Remove(productID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.stocks, productID)
}
