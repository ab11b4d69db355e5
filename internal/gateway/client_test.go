package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/gateway"
	"github.com/noah-isme/backend-pos/internal/resilience"
)

func newClient(t *testing.T, srv *httptest.Server) *gateway.Client {
	t.Helper()
	c, err := gateway.NewClient(srv.URL, "test-key", &resilience.HTTPClient{
		Client:      srv.Client(),
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
		Target:      "erp-gateway",
	}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestSearchProductsMapsWireFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pos/products", r.URL.Path)
		require.Equal(t, "pen", r.URL.Query().Get("query"))
		require.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[{"stockCode":"PEN001","description1":"Ballpoint pen","sellingPriceCents":15000,"vatCode":"S","qtyOnHand":12}]}`))
	}))
	defer srv.Close()

	products, err := newClient(t, srv).SearchProducts(context.Background(), "pen", 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "PEN001", products[0].Code)
	require.Equal(t, "Ballpoint pen", products[0].Description)
	require.EqualValues(t, 15000, products[0].UnitPrice)
	require.Equal(t, "S", products[0].VATCode)
}

func TestGetProductNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such product", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).GetProduct(context.Background(), "NOPE")
	require.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestCreateDocumentRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documentNumber":"INV-100042"}`))
	}))
	defer srv.Close()

	number, err := newClient(t, srv).CreateDocument(context.Background(), gateway.Document{Type: "cash"})
	require.NoError(t, err)
	require.Equal(t, "INV-100042", number)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestCreateDocumentSendsStableIdempotencyKey(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		first := len(keys) == 1
		mu.Unlock()
		if first {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documentNumber":"INV-100043"}`))
	}))
	defer srv.Close()

	ref := "2f9d7c3a-0b55-4a1e-9c37-6f0d8a2e4b11"
	number, err := newClient(t, srv).CreateDocument(context.Background(), gateway.Document{ClientRef: ref, Type: "cash"})
	require.NoError(t, err)
	require.Equal(t, "INV-100043", number)
	require.Equal(t, []string{ref, ref}, keys)
}

func TestCreateDocumentUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).CreateDocument(context.Background(), gateway.Document{Type: "cash"})
	require.ErrorIs(t, err, gateway.ErrUnavailable)
}

func TestInvoiceLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pos/invoices/INV-55/lines", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"lines":[{"stockCode":"A11159A","description1":"Widget","quantity":4,"unitPriceCents":125050}]}`))
	}))
	defer srv.Close()

	lines, err := newClient(t, srv).InvoiceLines(context.Background(), "INV-55")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 4, lines[0].Qty)
	require.EqualValues(t, 125050, lines[0].UnitPrice)
}
