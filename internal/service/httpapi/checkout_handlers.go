package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// CheckoutHandler обслуживает оформление заказа: валидацию, расчёт суммы
// и оба пути оплаты.
type CheckoutHandler struct {
	svc    *checkout.Service
	guard  *idempotency.Guard
	logger *log.Entry
}

func NewCheckoutHandler(svc *checkout.Service, guard *idempotency.Guard, logger *log.Entry) *CheckoutHandler {
	if logger == nil {
		logger = log.WithField("component", "checkout-handler")
	}
	return &CheckoutHandler{svc: svc, guard: guard, logger: logger}
}

type shippingFormRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Instructions string `json:"instructions"`
}

func (f shippingFormRequest) toForm() checkout.ShippingForm {
	return checkout.ShippingForm{
		Name:         f.Name,
		Email:        f.Email,
		Phone:        f.Phone,
		Address:      f.Address,
		Instructions: f.Instructions,
	}
}

type createOrderRequest struct {
	Source string              `json:"source"`
	Form   shippingFormRequest `json:"form"`
	// AmountMinor опционален: прислан — сверяется с пересчётом на сервере.
	AmountMinor *int64 `json:"amount_minor"`
}

// createOrderResponse отдаёт фронту всё нужное для открытия платёжной сессии.
type createOrderResponse struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	OrderID  string `json:"orderId"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}

func parseSource(raw string) (domain.CheckoutSource, bool) {
	switch domain.CheckoutSource(raw) {
	case domain.CheckoutSourceCart, domain.CheckoutSourceBuyNow:
		return domain.CheckoutSource(raw), true
	case "":
		return domain.CheckoutSourceCart, true
	default:
		return "", false
	}
}

func (h *CheckoutHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	source, ok := parseSource(r.URL.Query().Get("source"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_source", "source must be cart or buy_now")
		return
	}

	result, err := h.svc.Validate(userID, source)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, validationToView(result))
}

func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}
	source, ok := parseSource(r.URL.Query().Get("source"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_source", "source must be cart or buy_now")
		return
	}
	method := domain.PaymentMethod(r.URL.Query().Get("method"))
	if method != "" && !method.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_method", "method must be razorpay or cod")
		return
	}

	breakdown, err := h.svc.Quote(userID, source, method)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, breakdownToView(breakdown))
}

// CreateOrder создаёт ордер шлюза под оплату онлайн.
// Сумма пересчитывается на сервере; amount_minor из запроса только сверяется.
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	source, ok := parseSource(req.Source)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_source", "source must be cart or buy_now")
		return
	}

	clientAmount := int64(-1)
	if req.AmountMinor != nil {
		clientAmount = *req.AmountMinor
	}

	intent, err := h.svc.CreateGatewayOrder(userID, source, req.Form.toForm(), clientAmount)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, createOrderResponse{
		ID:       intent.GatewayOrderID,
		Key:      intent.Key,
		Amount:   intent.AmountMinor,
		Currency: intent.Currency,
		OrderID:  intent.OrderID,
	})
}

// Verify подтверждает оплату по callback шлюза.
// Никогда не отдаёт 5xx за проваленную подпись: это ответ о результате, не сбой.
func (h *CheckoutHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var cb domain.GatewayCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.svc.CompleteGatewayPayment(cb)
	if err != nil {
		if failure, ok := checkout.AsFailure(err); ok && failure.Kind == checkout.FailureVerification {
			respondJSON(w, http.StatusOK, verifyResponse{Success: false, Message: failure.Message})
			return
		}
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, verifyResponse{Success: true, OrderID: order.ID})
}

type processCODRequest struct {
	Source string              `json:"source"`
	Form   shippingFormRequest `json:"form"`
}

// ProcessCOD размещает заказ с оплатой при доставке.
// Запрос денежный по сути, поэтому обязателен Idempotency-Key.
func (h *CheckoutHandler) ProcessCOD(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return
	}

	var req processCODRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	source, ok := parseSource(req.Source)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_source", "source must be cart or buy_now")
		return
	}

	key := r.Header.Get(idempotencyKeyHeader)
	responseBody, status, err := h.guard.Execute(key, append([]byte(userID+"|"), body...), func() ([]byte, int, error) {
		order, err := h.svc.ProcessCOD(userID, source, req.Form.toForm())
		if err != nil {
			return nil, 0, err
		}
		payload, err := json.Marshal(orderToView(order))
		if err != nil {
			return nil, 0, err
		}
		return payload, http.StatusCreated, nil
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if status == 0 {
		// Повтор ключа, чья первая попытка провалилась без сохранённого ответа.
		respondError(w, http.StatusUnprocessableEntity, "previous_attempt_failed", "previous attempt with this idempotency key failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(responseBody)
}
