package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
)

// MaxQuantityPerLine is the storefront's per-line limit. The cart itself has
// no upper bound.
const MaxQuantityPerLine = 10

type CartHandler struct {
	log *slog.Logger
}

func NewCartHandler(log *slog.Logger) *CartHandler {
	return &CartHandler{log: log}
}

type AddItemRequestDTO struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type LoyaltyRequestDTO struct {
	PointsUsed int             `json:"points_used"`
	Discount   decimal.Decimal `json:"discount"`
}

type PromoRequestDTO struct {
	Code  string           `json:"code"`
	Kind  domain.PromoKind `json:"kind"`
	Value decimal.Decimal  `json:"value"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, cartResponse(getSession(r.Context())))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Product.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product", "product.id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > MaxQuantityPerLine {
		respondError(w, http.StatusBadRequest, "invalid_quantity",
			fmt.Sprintf("quantity must be between 1 and %d", MaxQuantityPerLine))
		return
	}
	if current := quantityOf(s.Cart().Lines(), req.Product.ID); current+req.Quantity > MaxQuantityPerLine {
		respondError(w, http.StatusBadRequest, "quantity_limit",
			fmt.Sprintf("at most %d per item, %d already in cart", MaxQuantityPerLine, current))
		return
	}

	if _, err := s.Cart().AddToCart(req.Product, req.Quantity); err != nil {
		h.log.WarnContext(r.Context(), "add to cart failed", "product_id", req.Product.ID, "error", err)
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse(s))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())
	lineID := chi.URLParam(r, "line_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > MaxQuantityPerLine {
		respondError(w, http.StatusBadRequest, "quantity_limit",
			fmt.Sprintf("at most %d per item", MaxQuantityPerLine))
		return
	}

	if err := s.Cart().UpdateQuantity(lineID, req.Quantity); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(s))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	if err := s.Cart().RemoveLine(chi.URLParam(r, "line_id")); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(s))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	if err := s.Cart().ClearCart(); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(s))
}

func (h *CartHandler) ApplyLoyalty(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	var req LoyaltyRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := s.Cart().ApplyLoyaltyDiscount(req.PointsUsed, req.Discount); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(s))
}

func (h *CartHandler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	var req PromoRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if err := s.Cart().ApplyPromoCode(req.Code, req.Kind, req.Value); err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartResponse(s))
}

func (h *CartHandler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())
	s.Cart().ClearDiscount()
	respondJSON(w, http.StatusOK, cartResponse(s))
}

// CompleteCheckout answers only after the emptied cart is durable.
func (h *CartHandler) CompleteCheckout(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	totals := s.Cart().Totals()
	if err := s.CompleteCheckout(r.Context()); err != nil {
		h.log.ErrorContext(r.Context(), "checkout completion failed", "error", err)
		handleServiceError(w, err)
		return
	}
	h.log.InfoContext(r.Context(), "checkout completed",
		"user_id", s.UserID(),
		"total", totals.Total.String(),
		"items", totals.ItemCount)

	respondJSON(w, http.StatusOK, cartResponse(s))
}

func quantityOf(lines []domain.CartLine, productID string) int {
	for _, l := range lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}
