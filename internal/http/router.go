package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/session"
)

// NewRouter wires the storefront session API.
func NewRouter(registry *session.Registry, requestTimeout time.Duration, log *slog.Logger) http.Handler {
	cartHandler := NewCartHandler(log)
	favouritesHandler := NewFavouritesHandler(log)
	sessionHandler := NewSessionHandler(registry, log)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(IdentityMiddleware)
		r.Use(SessionMiddleware(registry))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{line_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{line_id}", cartHandler.RemoveItem)
			r.Post("/loyalty", cartHandler.ApplyLoyalty)
			r.Post("/promo", cartHandler.ApplyPromo)
			r.Delete("/discount", cartHandler.ClearDiscount)
			r.Post("/checkout/complete", cartHandler.CompleteCheckout)
		})

		r.Route("/favourites", func(r chi.Router) {
			r.Get("/", favouritesHandler.List)
			r.Post("/", favouritesHandler.Add)
			r.Delete("/", favouritesHandler.Clear)
			r.Get("/{product_id}", favouritesHandler.Get)
			r.Delete("/{product_id}", favouritesHandler.Remove)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.Get)
			r.Delete("/", sessionHandler.End)
			r.Post("/sign-in", sessionHandler.SignIn)
			r.Post("/sign-out", sessionHandler.SignOut)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
