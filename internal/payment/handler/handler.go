package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/logger"
	orderrepo "github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/daraja"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/payment/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
	middleware     *auth.Middleware
}

func NewPaymentHandler(paymentService *service.PaymentService, middleware *auth.Middleware) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, middleware: middleware}
}

func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/payments/initiate-payment/", h.middleware.Require(h.initiate))
	mux.HandleFunc("/api/payments/mpesa-callback/", h.mpesaCallback)
	mux.HandleFunc("/api/payments/b2c-result/", h.b2cResult)
	mux.HandleFunc("/api/payments/payment-status/", h.middleware.Require(h.status))
	mux.HandleFunc("/api/payments/order-payment/", h.middleware.Require(h.statusByOrder))
	mux.HandleFunc("/api/payments/retry-payment/", h.middleware.Require(h.retry))
	mux.HandleFunc("/api/payments/payments/", h.middleware.Require(h.list))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, orderrepo.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotPaymentParty):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadyInitiated):
		// 409 carries a machine-readable code the storefront recovers from.
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": err.Error(),
			"code":  "payment_already_initiated",
		})
	case errors.Is(err, service.ErrNotRetryable), errors.Is(err, service.ErrOrderNotPayable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func pathID(r *http.Request, prefix string) (int64, error) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	return strconv.ParseInt(rest, 10, 64)
}

func (h *PaymentHandler) initiate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dto.InitiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := auth.FromContext(r)
	resp, err := h.paymentService.Initiate(r.Context(), claims.UserID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// mpesaCallback is unauthenticated; Daraja posts here. The raw body is
// logged before any parsing so malformed callbacks are still auditable.
func (h *PaymentHandler) mpesaCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := h.paymentService.LogWebhook(r.Context(), "mpesa_stk", string(body)); err != nil {
		logger.Warn("mpesa_callback", "failed to log webhook", "", "", err.Error())
	}

	var cb daraja.STKCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid callback body")
		return
	}

	if err := h.paymentService.HandleSTKCallback(r.Context(), cb); err != nil {
		logger.Error("mpesa_callback", "callback handling failed", "", "", err.Error())
		// Daraja retries on non-200; unknown checkouts are not worth retrying.
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
			return
		}
		writeError(w, http.StatusInternalServerError, "callback handling failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h *PaymentHandler) b2cResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := h.paymentService.LogWebhook(r.Context(), "mpesa_b2c", string(body)); err != nil {
		logger.Warn("b2c_result", "failed to log webhook", "", "", err.Error())
	}

	var result daraja.B2CResult
	if err := json.Unmarshal(body, &result); err != nil {
		writeError(w, http.StatusBadRequest, "invalid result body")
		return
	}

	if err := h.paymentService.HandleB2CResult(r.Context(), result); err != nil {
		logger.Error("b2c_result", "result handling failed", "", "", err.Error())
		writeError(w, http.StatusInternalServerError, "result handling failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h *PaymentHandler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := pathID(r, "/api/payments/payment-status/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	claims := auth.FromContext(r)
	payment, err := h.paymentService.Status(r.Context(), claims.UserID, claims.UserType, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) statusByOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}

	orderID, err := pathID(r, "/api/payments/order-payment/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	claims := auth.FromContext(r)
	payment, err := h.paymentService.StatusByOrder(r.Context(), claims.UserID, claims.UserType, orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *PaymentHandler) retry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := pathID(r, "/api/payments/retry-payment/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	var req dto.RetryPaymentRequest
	if r.Body != nil {
		// Body is optional; an empty retry reuses the original number.
		json.NewDecoder(r.Body).Decode(&req)
	}

	claims := auth.FromContext(r)
	resp, err := h.paymentService.Retry(r.Context(), claims.UserID, id, req.PhoneNumber)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PaymentHandler) list(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}

	claims := auth.FromContext(r)
	payments, err := h.paymentService.List(r.Context(), claims.UserID, claims.UserType)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
