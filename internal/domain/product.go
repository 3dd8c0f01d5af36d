package domain

import "github.com/shopspring/decimal"

// Product is the catalog shape the aggregates snapshot from. It is never validated or enriched here.
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	ImageURL      string           `json:"image_url,omitempty"`
	SKU           string           `json:"sku,omitempty"`
	Category      string           `json:"category,omitempty"`
	Brand         string           `json:"brand,omitempty"`
	Description   string           `json:"description,omitempty"`
	Rating        float64          `json:"rating,omitempty"`
	ReviewsCount  int              `json:"reviews_count,omitempty"`
}

type StockInfo struct {
	ProductID  string `json:"product_id"`
	StockCount int    `json:"stock_count"`
	InStock    bool   `json:"in_stock"`
}

// OutOfStock is what a lookup miss resolves to.
func OutOfStock(productID string) StockInfo {
	return StockInfo{ProductID: productID, StockCount: 0, InStock: false}
}
