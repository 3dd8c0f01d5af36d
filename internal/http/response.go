package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/service"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/session"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type CartResponse struct {
	UserID   string            `json:"user_id,omitempty"`
	Lines    []domain.CartLine `json:"lines"`
	Discount domain.Discount   `json:"discount"`
	Totals   domain.CartTotals `json:"totals"`
}

type FavouriteDTO struct {
	domain.FavouriteItem
	StockStatus domain.StockStatus `json:"stock_status"`
}

type FavouritesResponse struct {
	UserID string         `json:"user_id,omitempty"`
	Items  []FavouriteDTO `json:"items"`
	Count  int            `json:"count"`
}

type FavouriteResponse struct {
	IsFavourite bool          `json:"is_favourite"`
	Item        *FavouriteDTO `json:"item,omitempty"`
	Notice      string        `json:"notice,omitempty"`
}

type SessionResponse struct {
	UserID     string             `json:"user_id,omitempty"`
	Guest      bool               `json:"guest"`
	Cart       CartResponse       `json:"cart"`
	Favourites FavouritesResponse `json:"favourites"`
}

func cartResponse(s *session.Session) CartResponse {
	cart := s.Cart()
	return CartResponse{
		UserID:   s.UserID(),
		Lines:    cart.Lines(),
		Discount: cart.Discount(),
		Totals:   cart.Totals(),
	}
}

func favouriteDTO(item domain.FavouriteItem) FavouriteDTO {
	return FavouriteDTO{FavouriteItem: item, StockStatus: item.StockStatus()}
}

func favouritesResponse(s *session.Session) FavouritesResponse {
	items := s.Favourites().Items()
	dtos := make([]FavouriteDTO, len(items))
	for i, item := range items {
		dtos[i] = favouriteDTO(item)
	}
	return FavouritesResponse{UserID: s.UserID(), Items: dtos, Count: len(dtos)}
}

func sessionResponse(s *session.Session) SessionResponse {
	userID := s.UserID()
	return SessionResponse{
		UserID:     userID,
		Guest:      userID == "",
		Cart:       cartResponse(s),
		Favourites: favouritesResponse(s),
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleServiceError maps aggregate and session errors to HTTP statuses.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, service.ErrInvalidProduct):
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
	case errors.Is(err, service.ErrInvalidDiscount):
		respondError(w, http.StatusBadRequest, "invalid_discount", err.Error())
	case errors.Is(err, service.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "line_not_found", err.Error())
	case errors.Is(err, session.ErrInvalidIdentity):
		respondError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, session.ErrSessionClosed):
		respondError(w, http.StatusConflict, "session_closed", err.Error())
	case errors.Is(err, service.ErrPersist):
		respondError(w, http.StatusInternalServerError, "persist_failed", "change applied but could not be saved")
	default:
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
