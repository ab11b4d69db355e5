package invoice

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/gateway"
)

// Handler exposes invoice line lookups so the till can preview an invoice
// before starting a return against it.
type Handler struct {
	Svc *Service
}

// Routes mounts the invoice endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{invoiceNo}/lines", h.Lines)
}

// Lines returns the lines of an issued invoice.
func (h *Handler) Lines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Svc.Lines(r.Context(), chi.URLParam(r, "invoiceNo"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": lines})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "INVOICE_NOT_FOUND", "invoice not found", nil)
	case errors.Is(err, gateway.ErrUnavailable):
		common.JSONError(w, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "invoice lookup temporarily unavailable", nil)
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
}
