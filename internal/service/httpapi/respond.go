package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
)

// ErrorResponse — единый формат ошибки API.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Reasons []blockReasonView `json:"reasons,omitempty"`
}

type blockReasonView struct {
	Kind        string `json:"kind"`
	ItemID      string `json:"item_id,omitempty"`
	ProductID   string `json:"product_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Message     string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError переводит ошибки доменного слоя в HTTP-статусы.
func respondServiceError(w http.ResponseWriter, err error) {
	if failure, ok := checkout.AsFailure(err); ok {
		respondFailure(w, failure)
		return
	}

	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrLineItemNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrBuyNowNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrBuyNowExpired):
		respondError(w, http.StatusGone, "expired", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrPaymentMethodInvalid),
		errors.Is(err, domain.ErrUserRequired),
		errors.Is(err, domain.ErrAddressRequired),
		errors.Is(err, domain.ErrIdempotencyKeyRequired):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		respondError(w, http.StatusConflict, "in_progress", "request with this idempotency key is still being processed")
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		respondError(w, http.StatusUnprocessableEntity, "idempotency_mismatch", err.Error())
	case errors.Is(err, domain.ErrCheckoutBusy):
		respondError(w, http.StatusConflict, "checkout_busy", err.Error())
	case errors.Is(err, domain.ErrCheckoutState):
		respondError(w, http.StatusConflict, "checkout_state", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func respondFailure(w http.ResponseWriter, failure *checkout.Failure) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch failure.Kind {
	case checkout.FailureValidationBlocked:
		status = http.StatusUnprocessableEntity
		code = "validation_blocked"
	case checkout.FailureGatewayUnavailable:
		status = http.StatusServiceUnavailable
		code = "gateway_unavailable"
	case checkout.FailureVerification:
		status = http.StatusBadRequest
		code = "verification_failed"
	case checkout.FailureServerRejected:
		status = http.StatusUnprocessableEntity
		code = "rejected"
	case checkout.FailureNetwork:
		status = http.StatusBadGateway
		code = "upstream_failed"
	}

	reasons := make([]blockReasonView, 0, len(failure.Reasons))
	for _, reason := range failure.Reasons {
		reasons = append(reasons, blockReasonView{
			Kind:        string(reason.Kind),
			ItemID:      reason.ItemID,
			ProductID:   reason.ProductID,
			ProductName: reason.ProductName,
			Message:     reason.Message,
		})
	}

	respondJSON(w, status, ErrorResponse{
		Error:   failure.Message,
		Code:    code,
		Reasons: reasons,
	})
}
