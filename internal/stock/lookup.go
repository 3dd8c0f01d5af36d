package stock

import (
	"context"
	"errors"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
)

var (
	ErrLookupUnavailable = errors.New("stock lookup unavailable")
	ErrInvalidStock      = errors.New("stock count must not be negative")
)

// Lookup answers current stock for product ids. Ids it does not know are
// simply absent from the result.
type Lookup interface {
	GetStock(ctx context.Context, productIDs []string) (map[string]domain.StockInfo, error)
}

// Resolve returns the stock for productID, treating a miss as out of stock.
func Resolve(stocks map[string]domain.StockInfo, productID string) domain.StockInfo {
	if s, ok := stocks[productID]; ok {
		return s
	}
	return domain.OutOfStock(productID)
}
