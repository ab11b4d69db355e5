package customer

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/gateway"
)

// Handler wires customer lookups to HTTP.
type Handler struct {
	Svc *Service
}

// Routes mounts the customer endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Search)
	r.Get("/{account}", h.Get)
}

// Search finds accounts by name or code.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		query = r.URL.Query().Get("q")
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 25)
	customers, err := h.Svc.Search(r.Context(), query, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customers})
}

// Get resolves one account.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	customer, err := h.Svc.Get(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customer})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
	case errors.Is(err, gateway.ErrUnavailable):
		common.JSONError(w, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "customer lookup temporarily unavailable", nil)
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
}
