package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/model"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/repository"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/catalog/service"
	"github.com/Bobybuu/zeno-speedy-services-sub001/internal/common/auth"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
	middleware     *auth.Middleware
}

func NewCatalogHandler(catalogService *service.CatalogService, middleware *auth.Middleware) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, middleware: middleware}
}

func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/services/categories/", h.listCategories)
	mux.HandleFunc("/api/services/services/", h.routeServices)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET allowed", http.StatusMethodNotAllowed)
		return
	}
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) routeServices(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/services/services/"), "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.listServices(w, r)
	case rest == "" && r.Method == http.MethodPost:
		h.middleware.RequireRole(h.createService, "vendor", "mechanic")(w, r)
	case rest != "":
		h.serviceByID(w, r, rest)
	default:
		http.NotFound(w, r)
	}
}

func (h *CatalogHandler) listServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ServiceFilter{
		Category:     q.Get("category"),
		BusinessType: q.Get("business_type"),
		Search:       q.Get("search"),
	}
	if v := q.Get("vendor"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid vendor filter")
			return
		}
		filter.VendorID = id
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

	services, err := h.catalogService.ListServices(r.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrMissingCoords) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (h *CatalogHandler) createService(w http.ResponseWriter, r *http.Request) {
	var svc model.Service
	if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	claims := auth.FromContext(r)
	created, err := h.catalogService.CreateService(r.Context(), claims.UserID, svc)
	if err != nil {
		if errors.Is(err, service.ErrInvalidService) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) serviceByID(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		svc, err := h.catalogService.GetService(r.Context(), id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, svc)

	case http.MethodPut, http.MethodPatch:
		h.middleware.Require(func(w http.ResponseWriter, r *http.Request) {
			var svc model.Service
			if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			claims := auth.FromContext(r)
			updated, err := h.catalogService.UpdateService(r.Context(), claims.UserID, id, svc)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrNotOwner):
					writeError(w, http.StatusForbidden, err.Error())
				case errors.Is(err, repository.ErrNotFound):
					writeError(w, http.StatusNotFound, err.Error())
				default:
					writeError(w, http.StatusBadRequest, err.Error())
				}
				return
			}
			writeJSON(w, http.StatusOK, updated)
		})(w, r)

	default:
		http.Error(w, "only GET, PUT allowed", http.StatusMethodNotAllowed)
	}
}
