package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/gateway"
)

// Handler wires catalog lookups to HTTP.
type Handler struct {
	Svc *Service
}

// Routes mounts the catalog endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Search)
	r.Get("/{code}", h.Get)
	r.Get("/barcode/{barcode}", h.ByBarcode)
}

// Search queries the catalog.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		query = r.URL.Query().Get("q")
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 25)
	products, err := h.Svc.Search(r.Context(), query, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

// Get resolves a single product by stock code or barcode.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.Svc.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// ByBarcode resolves a product from a scanned barcode.
func (h *Handler) ByBarcode(w http.ResponseWriter, r *http.Request) {
	product, err := h.Svc.ByBarcode(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, gateway.ErrUnavailable):
		common.JSONError(w, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "catalog temporarily unavailable", nil)
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
}
