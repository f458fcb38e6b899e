package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

// NewRouter собирает HTTP API витрины.
func NewRouter(cartHandler *CartHandler, checkoutHandler *CheckoutHandler, ordersHandler *OrdersHandler, healthHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	if healthHandler != nil {
		r.Get("/healthz", healthHandler.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Delete("/", cartHandler.Clear)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{itemID}", cartHandler.UpdateQuantity)
			r.Patch("/items/{itemID}/variant", cartHandler.UpdateVariant)
			r.Delete("/items/{itemID}", cartHandler.RemoveItem)
		})

		r.Post("/buy-now", cartHandler.BuyNow)

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/validate", checkoutHandler.Validate)
			r.Get("/quote", checkoutHandler.Quote)
		})

		r.Route("/payment", func(r chi.Router) {
			r.Post("/create-order", checkoutHandler.CreateOrder)
			r.Post("/verify", checkoutHandler.Verify)
			r.Post("/process-cod", checkoutHandler.ProcessCOD)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.List)
			r.Get("/{orderID}", ordersHandler.Get)
			r.Get("/{orderID}/timeline", ordersHandler.Timeline)
		})
	})

	return r
}
