package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
)

const noticeAlreadyFavourite = "product is already in favourites"

type FavouritesHandler struct {
	log *slog.Logger
}

func NewFavouritesHandler(log *slog.Logger) *FavouritesHandler {
	return &FavouritesHandler{log: log}
}

func (h *FavouritesHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, favouritesResponse(getSession(r.Context())))
}

func (h *FavouritesHandler) Add(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	added, err := s.Favourites().AddToFavourites(r.Context(), p)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := FavouriteResponse{IsFavourite: true}
	if item, ok := s.Favourites().Item(p.ID); ok {
		dto := favouriteDTO(item)
		resp.Item = &dto
	}
	if !added {
		resp.Notice = noticeAlreadyFavourite
		respondJSON(w, http.StatusOK, resp)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *FavouritesHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	item, ok := s.Favourites().Item(chi.URLParam(r, "product_id"))
	resp := FavouriteResponse{IsFavourite: ok}
	if ok {
		dto := favouriteDTO(item)
		resp.Item = &dto
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *FavouritesHandler) Remove(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	if err := s.Favourites().RemoveFromFavourites(chi.URLParam(r, "product_id")); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, favouritesResponse(s))
}

func (h *FavouritesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s := getSession(r.Context())

	if err := s.Favourites().ClearFavourites(); err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, favouritesResponse(s))
}
