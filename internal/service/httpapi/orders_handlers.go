package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

// OrdersHandler отдаёт заказы покупателя и ленту событий заказа.
type OrdersHandler struct {
	svc    *checkout.Service
	logger *log.Entry
}

func NewOrdersHandler(svc *checkout.Service, logger *log.Entry) *OrdersHandler {
	if logger == nil {
		logger = log.WithField("component", "orders-handler")
	}
	return &OrdersHandler{svc: svc, logger: logger}
}

func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	orders, err := h.svc.OrdersByUser(userID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, orderToView(order))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	orderID := chi.URLParam(r, "orderID")

	order, err := h.svc.Order(orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if order.UserID != userID {
		// Чужой заказ неотличим от несуществующего.
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	respondJSON(w, http.StatusOK, orderToView(order))
}

func (h *OrdersHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	orderID := chi.URLParam(r, "orderID")

	order, err := h.svc.Order(orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if order.UserID != userID {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}

	events, err := h.svc.OrderTimeline(orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]timelineEventView, 0, len(events))
	for _, event := range events {
		views = append(views, timelineEventView{
			OrderID:  event.OrderID,
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	respondJSON(w, http.StatusOK, views)
}
