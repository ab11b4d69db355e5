package sale

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/gateway"
	"github.com/noah-isme/backend-pos/internal/pricelist"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ProductResolver looks up a catalog product for a scanned or typed code.
type ProductResolver interface {
	Lookup(ctx context.Context, code string) (gateway.Product, error)
}

// PriceEnricher resolves the category price and cost floor for a product.
type PriceEnricher interface {
	EnrichOne(ctx context.Context, product gateway.Product, category string) pricelist.Price
}

// InvoiceSource fetches the lines of a previously issued invoice.
type InvoiceSource interface {
	Lines(ctx context.Context, invoiceNo string) ([]gateway.InvoiceLine, error)
}

// Handler wires the sale service to HTTP.
type Handler struct {
	Svc      *Service
	Products ProductResolver
	Prices   PriceEnricher
	Invoices InvoiceSource
	Validate *validator.Validate

	// DefaultPriceCategory is used for price enrichment when the sale header
	// does not carry a category of its own.
	DefaultPriceCategory string
}

// Routes mounts the sale endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Void)
	r.Post("/{id}/customer", h.AttachCustomer)
	r.Post("/{id}/invoice", h.AttachInvoice)
	r.Post("/{id}/lines", h.AddLine)
	r.Patch("/{id}/lines/{lineID}", h.UpdateLine)
	r.Delete("/{id}/lines/{lineID}", h.RemoveLine)
	r.Get("/{id}/totals", h.Totals)
	r.Post("/{id}/finalize", h.Finalize)
}

type createPayload struct {
	Type            string `json:"type" validate:"required"`
	Warehouse       string `json:"warehouse" validate:"required"`
	SalesRep        string `json:"salesRep"`
	VATIndicator    string `json:"vatIndicator"`
	PriceCategory   string `json:"priceCategory"`
	Reference       string `json:"reference"`
	CustomerAccount string `json:"customerAccount"`
	CustomerName    string `json:"customerName"`
}

// Create opens a new sale session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sale service not configured", nil)
		return
	}
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	typ, ok := ParseType(payload.Type)
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown sale type", nil)
		return
	}
	var customer *Customer
	if account := strings.TrimSpace(payload.CustomerAccount); account != "" {
		customer = &Customer{Account: account, Name: payload.CustomerName}
	}
	sl, err := h.Svc.Create(typ, Header{
		Warehouse:     payload.Warehouse,
		SalesRep:      payload.SalesRep,
		VATIndicator:  payload.VATIndicator,
		PriceCategory: payload.PriceCategory,
		Reference:     payload.Reference,
	}, customer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": h.render(sl)})
}

// Get returns the sale with its running totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sl, ok := h.load(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.render(sl)})
}

// Void discards the sale session.
func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	h.Svc.Void(id)
	w.WriteHeader(http.StatusNoContent)
}

// AttachCustomer books the sale against an account.
func (h *Handler) AttachCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	var payload struct {
		Account string `json:"account" validate:"required"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if err := h.Svc.AttachCustomer(id, Customer{Account: payload.Account, Name: payload.Name}); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AttachInvoice links a return to its original invoice, loading the invoice
// lines from the gateway unless the return is flagged unallocated.
func (h *Handler) AttachInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	var payload struct {
		InvoiceNo   string `json:"invoiceNo"`
		Unallocated bool   `json:"unallocated"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}

	var lines []InvoiceLine
	if !payload.Unallocated {
		if h.Invoices == nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice lookup not configured", nil)
			return
		}
		fetched, err := h.Invoices.Lines(r.Context(), payload.InvoiceNo)
		if err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				common.JSONError(w, http.StatusNotFound, "INVOICE_NOT_FOUND", "original invoice not found", nil)
				return
			}
			common.JSONError(w, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "unable to load original invoice", nil)
			return
		}
		lines = make([]InvoiceLine, 0, len(fetched))
		for _, l := range fetched {
			lines = append(lines, InvoiceLine{
				ProductCode: l.ProductCode,
				Description: l.Description,
				Qty:         l.Qty,
				UnitPrice:   l.UnitPrice,
			})
		}
	}
	if err := h.Svc.AttachInvoice(id, payload.InvoiceNo, lines, payload.Unallocated); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addLinePayload struct {
	ProductCode    string  `json:"productCode"`
	Description    string  `json:"description"`
	Qty            int     `json:"qty" validate:"required"`
	UnitPriceCents *int64  `json:"unitPriceCents"`
	DiscountValue  int64   `json:"discountValue" validate:"gte=0"`
	DiscountType   string  `json:"discountType"`
	UnitPrice      float64 `json:"unitPrice"`
}

// AddLine appends a line to the sale. Product lines resolve description,
// price and cost floor from the catalog; sundry lines must carry an explicit
// price.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	var payload addLinePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	c := Candidate{
		ProductCode:   strings.TrimSpace(payload.ProductCode),
		Description:   payload.Description,
		Qty:           payload.Qty,
		DiscountValue: payload.DiscountValue,
		DiscountType:  pricing.ParseDiscountType(payload.DiscountType),
	}
	switch {
	case payload.UnitPriceCents != nil:
		c.UnitPrice = *payload.UnitPriceCents
	case payload.UnitPrice != 0:
		c.UnitPrice = pricing.ToCents(payload.UnitPrice)
	}

	if c.ProductCode != "" && h.Products != nil {
		product, err := h.Products.Lookup(r.Context(), c.ProductCode)
		if err != nil {
			if errors.Is(err, gateway.ErrNotFound) {
				common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
				return
			}
			common.JSONError(w, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "unable to resolve product", nil)
			return
		}
		if c.Description == "" {
			c.Description = product.Description
		}
		category := h.DefaultPriceCategory
		if sl, err := h.Svc.Get(id); err == nil && sl.Header.PriceCategory != "" {
			category = sl.Header.PriceCategory
		}
		price := pricelist.Price{UnitPrice: product.UnitPrice}
		if h.Prices != nil {
			price = h.Prices.EnrichOne(r.Context(), product, category)
		}
		if c.UnitPrice == 0 {
			c.UnitPrice = price.UnitPrice
		}
		c.CostFloor = price.CostFloor
	}
	if c.ProductCode == "" && c.UnitPrice == 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sundry lines require a unit price", nil)
		return
	}

	line, err := h.Svc.AddLine(id, c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": renderLine(line)})
}

type updateLinePayload struct {
	Qty            *int     `json:"qty"`
	UnitPriceCents *int64   `json:"unitPriceCents"`
	UnitPrice      *float64 `json:"unitPrice"`
	DiscountValue  *int64   `json:"discountValue"`
	DiscountType   *string  `json:"discountType"`
	Description    *string  `json:"description"`
}

// UpdateLine edits an existing line.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	lineID, err := uuid.Parse(chi.URLParam(r, "lineID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid line id", nil)
		return
	}
	var payload updateLinePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return
	}

	patch := LinePatch{
		Qty:           payload.Qty,
		DiscountValue: payload.DiscountValue,
		Description:   payload.Description,
	}
	if payload.UnitPriceCents != nil {
		price := pricing.Money(*payload.UnitPriceCents)
		patch.UnitPrice = &price
	} else if payload.UnitPrice != nil {
		price := pricing.ToCents(*payload.UnitPrice)
		patch.UnitPrice = &price
	}
	if payload.DiscountType != nil {
		kind := pricing.ParseDiscountType(*payload.DiscountType)
		patch.DiscountType = &kind
	}

	line, err := h.Svc.UpdateLine(id, lineID, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": renderLine(line)})
}

// RemoveLine deletes a line from the sale.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	lineID, err := uuid.Parse(chi.URLParam(r, "lineID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid line id", nil)
		return
	}
	if err := h.Svc.RemoveLine(id, lineID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Totals returns the running totals of the sale.
func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	summary, err := h.Svc.Totals(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": renderSummary(summary)})
}

type finalizePayload struct {
	TenderedCents *int64  `json:"tenderedCents"`
	Tendered      float64 `json:"tendered"`
	AllowOffline  bool    `json:"allowOffline"`
}

// Finalize closes the sale and pushes the document to the gateway.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	var payload finalizePayload
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	var tendered pricing.Money
	if payload.TenderedCents != nil {
		tendered = *payload.TenderedCents
	} else {
		tendered = pricing.ToCents(payload.Tendered)
	}

	res, err := h.Svc.Finalize(r.Context(), id, tendered, payload.AllowOffline)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"documentNumber": res.DocumentNumber,
		"offline":        res.Offline,
		"changeCents":    res.Change,
		"totals":         renderSummary(res.Summary),
	}})
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*Sale, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return nil, false
	}
	sl, err := h.Svc.Get(id)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return sl, true
}

func (h *Handler) render(sl *Sale) map[string]any {
	lines := make([]map[string]any, 0, len(sl.Lines))
	for _, l := range sl.Lines {
		lines = append(lines, renderLine(l))
	}
	out := map[string]any{
		"id":        sl.ID.String(),
		"type":      string(sl.Type),
		"header":    sl.Header,
		"lines":     lines,
		"totals":    renderSummary(pricing.Compute(sl.PricingLines(), h.Svc.VATBps)),
		"createdAt": sl.CreatedAt,
	}
	if sl.Customer != nil {
		out["customer"] = sl.Customer
	}
	if sl.OriginalInvoiceNo != "" {
		out["originalInvoiceNo"] = sl.OriginalInvoiceNo
	}
	if sl.Unallocated {
		out["unallocated"] = true
	}
	return out
}

func renderLine(l Line) map[string]any {
	return map[string]any{
		"id":             l.ID.String(),
		"productCode":    l.ProductCode,
		"description":    l.Description,
		"qty":            l.Qty,
		"unitPriceCents": l.UnitPrice,
		"discountValue":  l.DiscountValue,
		"discountType":   string(l.DiscountType),
		"discountCents":  l.Discount(),
		"totalCents":     l.Total(),
	}
}

func renderSummary(s pricing.Summary) map[string]any {
	return map[string]any{
		"subtotalCents":              s.Subtotal,
		"discountCents":              s.Discount,
		"subtotalAfterDiscountCents": s.SubtotalAfterDiscount,
		"vatCents":                   s.VAT,
		"totalCents":                 s.Total,
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	var capErr *QtyCapError
	var costErr *BelowCostError
	var tenderErr *TenderError
	switch {
	case errors.As(err, &capErr):
		common.JSONError(w, http.StatusUnprocessableEntity, "RETURN_QTY_EXCEEDED", err.Error(), map[string]any{
			"productCode": capErr.ProductCode,
			"already":     capErr.Already,
			"requested":   capErr.Requested,
			"max":         capErr.Max,
		})
	case errors.As(err, &costErr):
		common.JSONError(w, http.StatusUnprocessableEntity, "PRICE_BELOW_COST", err.Error(), map[string]any{
			"productCode": costErr.ProductCode,
			"priceCents":  costErr.Price,
			"floorCents":  costErr.Floor,
		})
	case errors.As(err, &tenderErr):
		common.JSONError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_TENDER", err.Error(), map[string]any{
			"totalCents":    tenderErr.Total,
			"tenderedCents": tenderErr.Tendered,
			"shortCents":    tenderErr.Total - tenderErr.Tendered,
		})
	case errors.Is(err, ErrItemNotOnInvoice):
		common.JSONError(w, http.StatusUnprocessableEntity, "ITEM_NOT_ON_INVOICE", err.Error(), nil)
	case errors.Is(err, ErrEmptySale):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_SALE", err.Error(), nil)
	case errors.Is(err, ErrDocumentCreation):
		common.JSONError(w, http.StatusBadGateway, "DOCUMENT_CREATION_FAILED", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrLineNotFound), errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
