package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/service"
)

type VendorHandler struct {
	vendorService *service.VendorService
	payoutService *service.PayoutService
	middleware    *auth.Middleware
}

func NewVendorHandler(vendorService *service.VendorService, payoutService *service.PayoutService, middleware *auth.Middleware) *VendorHandler {
	return &VendorHandler{
		vendorService: vendorService,
		payoutService: payoutService,
		middleware:    middleware,
	}
}

func (h *VendorHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/vendors/vendors/", h.routeVendors)
	mux.HandleFunc("/api/vendors/gas-products/", h.routeGasProducts)
	mux.HandleFunc("/api/vendors/reviews/", h.routeReviews)
	mux.HandleFunc("/api/vendors/payout-requests/", h.middleware.Require(h.routePayouts))
	mux.HandleFunc("/api/vendors/payout-preferences/", h.middleware.Require(h.payoutPreferences))
	mux.HandleFunc("/api/vendors/earnings/", h.middleware.Require(h.listEarnings))
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
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrPayoutNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotVendorUser):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrNotEnoughFunds),
		errors.Is(err, service.ErrPayoutNotActionable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// subpath returns the segments after the given prefix, dropping the
// trailing empty segment left by Django-style trailing slashes.
func subpath(r *http.Request, prefix string) []string {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func (h *VendorHandler) routeVendors(w http.ResponseWriter, r *http.Request) {
	parts := subpath(r, "/api/vendors/vendors/")

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.listVendors(w, r)
	case len(parts) == 0 && r.Method == http.MethodPost:
		h.middleware.Require(h.createVendor)(w, r)
	case len(parts) == 1 && parts[0] == "my_vendor":
		h.middleware.Require(h.myVendor)(w, r)
	case len(parts) == 1:
		h.vendorByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "dashboard":
		h.middleware.Require(func(w http.ResponseWriter, r *http.Request) {
			h.dashboard(w, r, parts[0])
		})(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *VendorHandler) listVendors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ListFilter{
		BusinessType: q.Get("business_type"),
		City:         q.Get("city"),
	}
	if v := q.Get("is_verified"); v != "" {
		verified := v == "true" || v == "1"
		filter.IsVerified = &verified
	}

	vendors, err := h.vendorService.ListVendors(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vendors)
}

func (h *VendorHandler) createVendor(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := auth.FromContext(r)
	created, err := h.vendorService.CreateVendor(r.Context(), claims.UserID, claims.UserType, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *VendorHandler) myVendor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}
	claims := auth.FromContext(r)
	vendor, err := h.vendorService.GetMyVendor(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vendor)
}

func (h *VendorHandler) vendorByID(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vendor id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		vendor, err := h.vendorService.GetVendor(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vendor)

	case http.MethodPut, http.MethodPatch:
		h.middleware.Require(func(w http.ResponseWriter, r *http.Request) {
			var req dto.UpdateVendorRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			claims := auth.FromContext(r)
			updated, err := h.vendorService.UpdateVendor(r.Context(), claims.UserID, id, req)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		})(w, r)

	default:
		http.Error(w, "only GET, PUT allowed", http.StatusMethodNotAllowed)
	}
}

func (h *VendorHandler) dashboard(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid vendor id")
		return
	}
	claims := auth.FromContext(r)
	summary, err := h.vendorService.Dashboard(r.Context(), claims.UserID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *VendorHandler) routeGasProducts(w http.ResponseWriter, r *http.Request) {
	parts := subpath(r, "/api/vendors/gas-products/")

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.listGasProducts(w, r)
	case len(parts) == 0 && r.Method == http.MethodPost:
		h.middleware.RequireRole(h.createGasProduct, "vendor", "mechanic")(w, r)
	case len(parts) == 1:
		h.gasProductByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "stock":
		h.middleware.Require(func(w http.ResponseWriter, r *http.Request) {
			h.updateStock(w, r, parts[0])
		})(w, r)
	case len(parts) == 2 && parts[1] == "price-history":
		h.priceHistory(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (h *VendorHandler) listGasProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ProductFilter{GasType: q.Get("gas_type")}

	if v := q.Get("vendor"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid vendor filter")
			return
		}
		filter.VendorID = id
	}
	if v := q.Get("is_available"); v != "" {
		available := v == "true" || v == "1"
		filter.Available = &available
	}
	if q.Get("radius") != "" {
		lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
		lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
		radius, radErr := strconv.ParseFloat(q.Get("radius"), 64)
		if latErr != nil || lngErr != nil || radErr != nil {
			writeError(w, http.StatusBadRequest, "radius filter requires lat, lng and radius")
			return
		}
		filter.Lat, filter.Lng, filter.RadiusKM = lat, lng, radius
	}

	products, err := h.vendorService.ListGasProducts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *VendorHandler) createGasProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.GasProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claims := auth.FromContext(r)
	created, err := h.vendorService.CreateGasProduct(r.Context(), claims.UserID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *VendorHandler) gasProductByID(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		product, err := h.vendorService.GetGasProduct(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)

	case http.MethodPut, http.MethodPatch:
		h.middleware.Require(func(w http.ResponseWriter, r *http.Request) {
			var req dto.GasProductRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			claims := auth.FromContext(r)
			updated, err := h.vendorService.UpdateGasProduct(r.Context(), claims.UserID, id, req)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, updated)
		})(w, r)

	default:
		http.Error(w, "only GET, PUT allowed", http.StatusMethodNotAllowed)
	}
}

func (h *VendorHandler) updateStock(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req dto.StockUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claims := auth.FromContext(r)
	updated, err := h.vendorService.UpdateStock(r.Context(), claims.UserID, id, req.StockQuantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *VendorHandler) priceHistory(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	history, err := h.vendorService.PriceHistory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *VendorHandler) routeReviews(w http.ResponseWriter, r *http.Request) {
	parts := subpath(r, "/api/vendors/reviews/")

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.listReviews(w, r)
	case len(parts) == 0 && r.Method == http.MethodPost:
		h.middleware.Require(h.submitReview)(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *VendorHandler) listReviews(w http.ResponseWriter, r *http.Request) {
	vendorID, err := strconv.ParseInt(r.URL.Query().Get("vendor"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "vendor query parameter is required")
		return
	}
	reviews, err := h.vendorService.ListReviews(r.Context(), vendorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *VendorHandler) submitReview(w http.ResponseWriter, r *http.Request) {
	var req dto.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claims := auth.FromContext(r)
	review, err := h.vendorService.SubmitReview(r.Context(), claims.UserID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *VendorHandler) routePayouts(w http.ResponseWriter, r *http.Request) {
	parts := subpath(r, "/api/vendors/payout-requests/")
	claims := auth.FromContext(r)

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.listPayouts(w, r, claims)
	case len(parts) == 0 && r.Method == http.MethodPost:
		h.requestPayout(w, r, claims)
	case len(parts) == 2 && parts[1] == "approve" && r.Method == http.MethodPost:
		h.adminPayoutAction(w, r, claims, parts[0], h.payoutService.ApprovePayout)
	case len(parts) == 2 && parts[1] == "process" && r.Method == http.MethodPost:
		h.processPayout(w, r, claims, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (h *VendorHandler) listPayouts(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	if claims.UserType == "admin" {
		status := model.PayoutStatus(r.URL.Query().Get("status"))
		payouts, err := h.payoutService.ListPayouts(r.Context(), 0, status)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payouts)
		return
	}

	payouts, err := h.payoutService.ListMyPayouts(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payouts)
}

func (h *VendorHandler) requestPayout(w http.ResponseWriter, r *http.Request, claims *auth.Claims) {
	var req dto.PayoutRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.payoutService.RequestPayout(r.Context(), claims.UserID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *VendorHandler) adminPayoutAction(w http.ResponseWriter, r *http.Request, claims *auth.Claims, rawID string, action func(context.Context, int64) (model.PayoutRequest, error)) {
	if claims.UserType != "admin" {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payout id")
		return
	}
	updated, err := action(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *VendorHandler) processPayout(w http.ResponseWriter, r *http.Request, claims *auth.Claims, rawID string) {
	if claims.UserType != "admin" {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payout id")
		return
	}
	txn, err := h.payoutService.ProcessPayout(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *VendorHandler) payoutPreferences(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r)

	switch r.Method {
	case http.MethodGet:
		prefs, err := h.payoutService.PayoutPreferences(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	case http.MethodPut, http.MethodPatch:
		var req dto.PayoutPreferencesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		prefs, err := h.payoutService.UpdatePayoutPreferences(r.Context(), claims.UserID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, prefs)
	default:
		http.Error(w, "only GET, PUT allowed", http.StatusMethodNotAllowed)
	}
}

func (h *VendorHandler) listEarnings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}
	claims := auth.FromContext(r)
	earnings, err := h.payoutService.ListEarnings(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, earnings)
}
