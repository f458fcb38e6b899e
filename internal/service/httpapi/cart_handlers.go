package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
)

// CartHandler обслуживает корзину и слот "купить сейчас".
type CartHandler struct {
	store  *cart.Store
	buyNow *cart.BuyNowService
	logger *log.Entry
}

func NewCartHandler(store *cart.Store, buyNow *cart.BuyNowService, logger *log.Entry) *CartHandler {
	if logger == nil {
		logger = log.WithField("component", "cart-handler")
	}
	return &CartHandler{store: store, buyNow: buyNow, logger: logger}
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

type updateQuantityRequest struct {
	Qty int32 `json:"qty"`
}

type updateVariantRequest struct {
	Color *string `json:"color"`
	Size  *string `json:"size"`
}

type updateQuantityResponse struct {
	Item    lineItemView `json:"item"`
	Clamped bool         `json:"clamped"`
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	c, err := h.store.Get(userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartToView(c))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	item, err := h.store.Add(userID, req.ProductID, req.Qty, domain.VariantSelection{Color: req.Color, Size: req.Size})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, lineItemToView(item))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	itemID := chi.URLParam(r, "itemID")

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	item, clamped, err := h.store.UpdateQuantity(userID, itemID, req.Qty)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updateQuantityResponse{Item: lineItemToView(item), Clamped: clamped})
}

func (h *CartHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	itemID := chi.URLParam(r, "itemID")

	var req updateVariantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	item, err := h.store.UpdateVariant(userID, itemID, cart.VariantPatch{Color: req.Color, Size: req.Size})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lineItemToView(item))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	itemID := chi.URLParam(r, "itemID")

	if err := h.store.Remove(userID, itemID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.store.Clear(userID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BuyNow создаёт разовый слот "купить сейчас" поверх корзины.
func (h *CartHandler) BuyNow(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	slot, err := h.buyNow.Create(userID, req.ProductID, req.Qty, domain.VariantSelection{Color: req.Color, Size: req.Size})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, lineItemToView(slot.AsLineItem()))
}
