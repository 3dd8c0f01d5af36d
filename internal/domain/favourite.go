package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the highest positive count still reported as low stock.
const LowStockThreshold = 5

type StockStatus string

const (
	StockUnknown    StockStatus = "unknown"
	StockInStock    StockStatus = "in_stock"
	StockLow        StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

type FavouriteItem struct {
	ID             string           `json:"id"`
	ProductID      string           `json:"product_id"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	OriginalPrice  *decimal.Decimal `json:"original_price,omitempty"`
	ImageURL       string           `json:"image_url,omitempty"`
	SKU            string           `json:"sku,omitempty"`
	Brand          string           `json:"brand,omitempty"`
	Category       string           `json:"category,omitempty"`
	Rating         float64          `json:"rating,omitempty"`
	ReviewsCount   int              `json:"reviews_count,omitempty"`
	StockCount     int              `json:"stock_count"`
	InStock        bool             `json:"in_stock"`
	StockCheckedAt *time.Time       `json:"stock_checked_at,omitempty"`
	AddedAt        time.Time        `json:"added_at"`
}

func FavouriteID(productID string, at time.Time) string {
	return fmt.Sprintf("fav_%s_%d", productID, at.UnixMilli())
}

// NewFavourite snapshots p and merges the stock result taken at the same moment.
func NewFavourite(p Product, stock StockInfo, at time.Time) FavouriteItem {
	checked := at
	return FavouriteItem{
		ID:             FavouriteID(p.ID, at),
		ProductID:      p.ID,
		Name:           p.Name,
		Price:          p.Price,
		OriginalPrice:  p.OriginalPrice,
		ImageURL:       p.ImageURL,
		SKU:            p.SKU,
		Brand:          p.Brand,
		Category:       p.Category,
		Rating:         p.Rating,
		ReviewsCount:   p.ReviewsCount,
		StockCount:     stock.StockCount,
		InStock:        stock.InStock,
		StockCheckedAt: &checked,
		AddedAt:        at,
	}
}

func (f FavouriteItem) StockStatus() StockStatus {
	switch {
	case f.StockCheckedAt == nil:
		return StockUnknown
	case !f.InStock || f.StockCount <= 0:
		return StockOutOfStock
	case f.StockCount <= LowStockThreshold:
		return StockLow
	default:
		return StockInStock
	}
}

// StockDiffers reports whether applying s would change the item's stock fields.
func (f FavouriteItem) StockDiffers(s StockInfo) bool {
	return f.StockCount != s.StockCount || f.InStock != s.InStock
}
