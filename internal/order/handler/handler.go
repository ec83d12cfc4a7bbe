package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	catalogrepo "github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/handler/dto"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/order/service"
	vendorrepo "github.com/Bobybuu/zeno-speedy-services-sub001/internal/vendors/repository"
)

type OrderHandler struct {
	cartService  *service.CartService
	orderService *service.OrderService
	middleware   *auth.Middleware
}

func NewOrderHandler(cartService *service.CartService, orderService *service.OrderService, middleware *auth.Middleware) *OrderHandler {
	return &OrderHandler{
		cartService:  cartService,
		orderService: orderService,
		middleware:   middleware,
	}
}

func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/orders/cart/", h.middleware.Require(h.routeCart))
	mux.HandleFunc("/api/orders/orders/", h.middleware.Require(h.routeOrders))
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
		errors.Is(err, repository.ErrCartItemNotFound),
		errors.Is(err, catalogrepo.ErrNotFound),
		errors.Is(err, vendorrepo.ErrNotFound),
		errors.Is(err, vendorrepo.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrMixedVendors):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotOrderParty), errors.Is(err, service.ErrNotCartOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrItemUnavailable),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, service.ErrBadTransition),
		errors.Is(err, service.ErrAlreadyFinalized),
		errors.Is(err, service.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func subpath(r *http.Request, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func (h *OrderHandler) routeCart(w http.ResponseWriter, r *http.Request) {
	parts := subpath(r, "/api/orders/cart/")
	claims := auth.FromContext(r)

	if len(parts) != 1 {
		http.NotFound(w, r)
		return
	}

	switch parts[0] {
	case "my_cart":
		if r.Method != http.MethodGet {
			http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
			return
		}
		cart, err := h.cartService.MyCart(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case "add_item":
		if r.Method != http.MethodPost {
			http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		var req dto.AddServiceItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cart, err := h.cartService.AddServiceItem(r.Context(), claims.UserID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case "add_gas_product":
		if r.Method != http.MethodPost {
			http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		var req dto.AddGasProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cart, err := h.cartService.AddGasProduct(r.Context(), claims.UserID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case "update_quantity":
		if r.Method != http.MethodPost {
			http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		var req dto.UpdateQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cart, err := h.cartService.UpdateQuantity(r.Context(), claims.UserID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case "remove_item":
		if r.Method != http.MethodPost {
			http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		var req dto.RemoveItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		cart, err := h.cartService.RemoveItem(r.Context(), claims.UserID, req.ItemID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case "clear":
		if r.Method != http.MethodPost {
			http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		cart, err := h.cartService.Clear(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	default:
		http.NotFound(w, r)
	}
}

func (h *OrderHandler) routeOrders(w http.ResponseWriter, r *http.Request) {
	parts := subpath(r, "/api/orders/orders/")
	claims := auth.FromContext(r)

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		orders, err := h.orderService.ListOrders(r.Context(), claims.UserID, claims.UserType)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)

	case len(parts) == 0 && r.Method == http.MethodPost:
		var req dto.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		order, err := h.orderService.CreateOrder(r.Context(), claims.UserID, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, order)

	case len(parts) == 1 && parts[0] == "vendor_orders":
		orders, err := h.orderService.VendorOrders(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)

	case len(parts) == 1:
		h.orderByID(w, r, claims, parts[0])

	case len(parts) == 2:
		h.orderAction(w, r, claims, parts[0], parts[1])

	default:
		http.NotFound(w, r)
	}
}

func (h *OrderHandler) orderByID(w http.ResponseWriter, r *http.Request, claims *auth.Claims, rawID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.orderService.GetOrder(r.Context(), claims.UserID, claims.UserType, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) orderAction(w http.ResponseWriter, r *http.Request, claims *auth.Claims, rawID, action string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	switch action {
	case "status":
		if r.Method != http.MethodPost {
			http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		var req dto.UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		order, err := h.orderService.UpdateStatus(r.Context(), claims.UserID, id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)

	case "cancel":
		if r.Method != http.MethodPost {
			http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
			return
		}
		order, err := h.orderService.CancelOrder(r.Context(), claims.UserID, claims.UserType, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, order)

	case "tracking":
		if r.Method != http.MethodGet {
			http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
			return
		}
		tracking, err := h.orderService.Tracking(r.Context(), claims.UserID, claims.UserType, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tracking)

	default:
		http.NotFound(w, r)
	}
}
