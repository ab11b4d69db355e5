package sale_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/gateway"
	"github.com/noah-isme/backend-pos/internal/pricelist"
	"github.com/noah-isme/backend-pos/internal/sale"
)

type fakeProducts map[string]gateway.Product

func (f fakeProducts) Lookup(_ context.Context, code string) (gateway.Product, error) {
	p, ok := f[strings.ToUpper(code)]
	if !ok {
		return gateway.Product{}, gateway.ErrNotFound
	}
	return p, nil
}

type fakePrices map[string]pricelist.Price

func (f fakePrices) EnrichOne(_ context.Context, p gateway.Product, _ string) pricelist.Price {
	if price, ok := f[strings.ToUpper(p.Code)]; ok {
		return price
	}
	return pricelist.Price{UnitPrice: p.UnitPrice}
}

type fakeInvoices map[string][]gateway.InvoiceLine

func (f fakeInvoices) Lines(_ context.Context, invoiceNo string) ([]gateway.InvoiceLine, error) {
	lines, ok := f[invoiceNo]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return lines, nil
}

type docCreator struct{ number string }

func (d docCreator) CreateDocument(context.Context, gateway.Document) (string, error) {
	return d.number, nil
}

func newRouter(t *testing.T) *chi.Mux {
	t.Helper()
	svc := &sale.Service{
		Store:     sale.NewStore(time.Hour),
		Documents: docCreator{number: "INV-200001"},
		VATBps:    1500,
		Logger:    zerolog.Nop(),
	}
	h := &sale.Handler{
		Svc: svc,
		Products: fakeProducts{
			"PEN001":  {Code: "PEN001", Description: "Ballpoint pen", UnitPrice: 15000},
			"A11159A": {Code: "A11159A", Description: "Widget", UnitPrice: 130000},
		},
		Prices: fakePrices{
			"PEN001": {UnitPrice: 15000, CostFloor: 9000},
		},
		Invoices: fakeInvoices{
			"INV-55": {{ProductCode: "A11159A", Description: "Widget", Qty: 4, UnitPrice: 125050}},
		},
		Validate: validator.New(),
	}
	r := chi.NewRouter()
	r.Route("/api/v1/sales", h.Routes)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createSale(t *testing.T, r http.Handler, typ string) string {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/v1/sales", `{"type":"`+typ+`","warehouse":"01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.ID
}

func TestSaleLifecycle(t *testing.T) {
	r := newRouter(t)
	id := createSale(t, r, "cash")

	rec := doJSON(t, r, http.MethodPost, "/api/v1/sales/"+id+"/lines", `{"productCode":"PEN001","qty":2,"discountValue":1000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var lineResp struct {
		Data struct {
			ID             string `json:"id"`
			UnitPriceCents int64  `json:"unitPriceCents"`
			DiscountCents  int64  `json:"discountCents"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lineResp))
	require.EqualValues(t, 15000, lineResp.Data.UnitPriceCents)
	require.EqualValues(t, 3000, lineResp.Data.DiscountCents)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/sales/"+id+"/totals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var totals struct {
		Data struct {
			Subtotal int64 `json:"subtotalCents"`
			VAT      int64 `json:"vatCents"`
			Total    int64 `json:"totalCents"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &totals))
	require.EqualValues(t, 30000, totals.Data.Subtotal)
	require.EqualValues(t, 4050, totals.Data.VAT)
	require.EqualValues(t, 31050, totals.Data.Total)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/sales/"+id+"/finalize", `{"tenderedCents":31049}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var errResp struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	require.Equal(t, "INSUFFICIENT_TENDER", errResp.Error.Code)
	require.EqualValues(t, 1, errResp.Error.Details["shortCents"])

	rec = doJSON(t, r, http.MethodPost, "/api/v1/sales/"+id+"/finalize", `{"tendered":310.50}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var fin struct {
		Data struct {
			DocumentNumber string `json:"documentNumber"`
			Offline        bool   `json:"offline"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fin))
	require.Equal(t, "INV-200001", fin.Data.DocumentNumber)
	require.False(t, fin.Data.Offline)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/sales/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddLineUnknownProduct(t *testing.T) {
	r := newRouter(t)
	id := createSale(t, r, "cash")

	rec := doJSON(t, r, http.MethodPost, "/api/v1/sales/"+id+"/lines", `{"productCode":"NOPE","qty":1}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "PRODUCT_NOT_FOUND")
}

func TestReturnFlowOverHTTP(t *testing.T) {
	r := newRouter(t)
	id := createSale(t, r, "return")

	rec := doJSON(t, r, http.MethodPost, "/api/v1/sales/"+id+"/invoice", `{"invoiceNo":"INV-55"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, "/api/v1/sales/"+id+"/lines", `{"productCode":"PEN001","qty":1}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "ITEM_NOT_ON_INVOICE")

	rec = doJSON(t, r, http.MethodPost, "/api/v1/sales/"+id+"/lines", `{"productCode":"a11159a","qty":5,"unitPriceCents":125050}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "RETURN_QTY_EXCEEDED")

	rec = doJSON(t, r, http.MethodPost, "/api/v1/sales/"+id+"/lines", `{"productCode":"a11159a","qty":4}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var lineResp struct {
		Data struct {
			Qty            int   `json:"qty"`
			UnitPriceCents int64 `json:"unitPriceCents"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lineResp))
	require.Equal(t, -4, lineResp.Data.Qty)
	require.EqualValues(t, 125050, lineResp.Data.UnitPriceCents)
}

func TestCreateSaleValidation(t *testing.T) {
	r := newRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/v1/sales", `{"type":"cash"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/sales", `{"type":"layaway","warehouse":"01"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

type recordingPrices struct {
	price      pricelist.Price
	categories []string
}

func (r *recordingPrices) EnrichOne(_ context.Context, _ gateway.Product, category string) pricelist.Price {
	r.categories = append(r.categories, category)
	return r.price
}

func TestAddLineFallsBackToDefaultPriceCategory(t *testing.T) {
	prices := &recordingPrices{price: pricelist.Price{UnitPrice: 15000, CostFloor: 9000}}
	svc := &sale.Service{
		Store:  sale.NewStore(time.Hour),
		VATBps: 1500,
		Logger: zerolog.Nop(),
	}
	h := &sale.Handler{
		Svc: svc,
		Products: fakeProducts{
			"PEN001": {Code: "PEN001", Description: "Ballpoint pen", UnitPrice: 15000},
		},
		Prices:               prices,
		Validate:             validator.New(),
		DefaultPriceCategory: "B",
	}
	r := chi.NewRouter()
	r.Route("/api/v1/sales", h.Routes)

	id := createSale(t, r, "cash")
	rec := doJSON(t, r, http.MethodPost, "/api/v1/sales/"+id+"/lines", `{"productCode":"PEN001","qty":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, []string{"B"}, prices.categories)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/sales", `{"type":"cash","warehouse":"01","priceCategory":"C"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = doJSON(t, r, http.MethodPost, "/api/v1/sales/"+resp.Data.ID+"/lines", `{"productCode":"PEN001","qty":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, []string{"B", "C"}, prices.categories)
}
