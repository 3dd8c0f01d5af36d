package domain

import "github.com/shopspring/decimal"

type CartLine struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Quantity      int              `json:"quantity"`
	SKU           string           `json:"sku,omitempty"`
	ImageURL      string           `json:"image_url,omitempty"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type PromoKind string

const (
	PromoPercentage PromoKind = "percentage"
	PromoFixed      PromoKind = "fixed"
)

// Discount holds the cart-level reductions. It is never stored per line.
type Discount struct {
	LoyaltyPointsUsed int             `json:"loyalty_points_used"`
	LoyaltyDiscount   decimal.Decimal `json:"loyalty_discount"`
	PromoCode         string          `json:"promo_code,omitempty"`
	PromoKind         PromoKind       `json:"promo_kind,omitempty"`
	PromoValue        decimal.Decimal `json:"promo_value"`
}

// PromoAmount evaluates the promo against subtotal; percentages follow the cart as it changes.
func (d Discount) PromoAmount(subtotal decimal.Decimal) decimal.Decimal {
	switch d.PromoKind {
	case PromoPercentage:
		return subtotal.Mul(d.PromoValue).Div(decimal.NewFromInt(100)).Round(2)
	case PromoFixed:
		return d.PromoValue
	default:
		return decimal.Zero
	}
}

type CartTotals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
	ItemCount      int             `json:"item_count"`
}

// ComputeTotals scans every line. The discount never takes the total below zero.
func ComputeTotals(lines []CartLine, discount Discount) CartTotals {
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
		count += l.Quantity
	}

	amount := discount.LoyaltyDiscount.Add(discount.PromoAmount(subtotal))
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return CartTotals{
		Subtotal:       subtotal,
		DiscountAmount: amount,
		Total:          subtotal.Sub(amount),
		ItemCount:      count,
	}
}
