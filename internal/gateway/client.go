package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/resilience"
)

// ErrUnavailable indicates the gateway could not be reached or answered 5xx.
var ErrUnavailable = errors.New("gateway unavailable")

// ErrNotFound indicates the gateway has no record matching the request.
var ErrNotFound = errors.New("gateway record not found")

// ErrUnauthorized indicates the gateway rejected the credentials.
var ErrUnauthorized = errors.New("gateway rejected credentials")

// Client talks to the ERP/POS gateway. All durable state lives behind it; the
// till only ever holds in-flight transactions.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *resilience.HTTPClient
	Logger  zerolog.Logger
}

// NewClient constructs a gateway client with a resilient transport.
func NewClient(baseURL, apiKey string, http_ *resilience.HTTPClient, logger zerolog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("gateway: base url is required")
	}
	if http_ == nil {
		return nil, errors.New("gateway: http client is required")
	}
	return &Client{BaseURL: base, APIKey: apiKey, HTTP: http_, Logger: logger}, nil
}

// SearchProducts queries the catalog by free text or stock-code prefix.
func (c *Client) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 25
	}
	q := url.Values{"query": {query}, "limit": {strconv.Itoa(limit)}}
	var out struct {
		Products []wireProduct `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/pos/products", q, nil, &out); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(out.Products))
	for _, w := range out.Products {
		products = append(products, w.toProduct())
	}
	return products, nil
}

// GetProduct resolves one product by its stock code.
func (c *Client) GetProduct(ctx context.Context, code string) (Product, error) {
	var out wireProduct
	path := "/pos/products/" + url.PathEscape(strings.TrimSpace(code))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return Product{}, err
	}
	return out.toProduct(), nil
}

// GetProductByBarcode resolves one product by scanned barcode.
func (c *Client) GetProductByBarcode(ctx context.Context, barcode string) (Product, error) {
	var out wireProduct
	path := "/pos/products/barcode/" + url.PathEscape(strings.TrimSpace(barcode))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return Product{}, err
	}
	return out.toProduct(), nil
}

// PriceList returns VAT-aware prices for the given stock codes in a price
// category.
func (c *Client) PriceList(ctx context.Context, codes []string, category string) ([]EnrichedPrice, error) {
	body := map[string]any{"stockCodes": codes, "priceCategory": category}
	var out struct {
		Prices []wirePrice `json:"prices"`
	}
	if err := c.do(ctx, http.MethodPost, "/pos/prices", nil, body, &out); err != nil {
		return nil, err
	}
	prices := make([]EnrichedPrice, 0, len(out.Prices))
	for _, w := range out.Prices {
		prices = append(prices, EnrichedPrice{
			Code:     w.StockCode,
			Price:    w.SellingPriceCents,
			ExclCost: w.CostPriceExclCents,
		})
	}
	return prices, nil
}

// InvoiceLines fetches the line items of a previously issued invoice, used to
// validate return transactions.
func (c *Client) InvoiceLines(ctx context.Context, invoiceNo string) ([]InvoiceLine, error) {
	trimmed := strings.TrimSpace(invoiceNo)
	if trimmed == "" {
		return nil, fmt.Errorf("gateway: invoice number is required")
	}
	var out struct {
		Lines []wireInvoiceLine `json:"lines"`
	}
	path := "/pos/invoices/" + url.PathEscape(trimmed) + "/lines"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	lines := make([]InvoiceLine, 0, len(out.Lines))
	for _, w := range out.Lines {
		lines = append(lines, InvoiceLine{
			ProductCode: w.StockCode,
			Description: w.Description,
			Qty:         w.Quantity,
			UnitPrice:   w.UnitPriceCents,
		})
	}
	return lines, nil
}

// SearchCustomers queries customer accounts by name or account prefix.
func (c *Client) SearchCustomers(ctx context.Context, query string, limit int) ([]Customer, error) {
	if limit <= 0 {
		limit = 25
	}
	q := url.Values{"query": {query}, "limit": {strconv.Itoa(limit)}}
	var out struct {
		Customers []Customer `json:"customers"`
	}
	if err := c.do(ctx, http.MethodGet, "/pos/customers", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Customers, nil
}

// GetCustomer resolves one customer account.
func (c *Client) GetCustomer(ctx context.Context, account string) (Customer, error) {
	var out Customer
	path := "/pos/customers/" + url.PathEscape(strings.TrimSpace(account))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return Customer{}, err
	}
	return out, nil
}

// CreateDocument persists a finalized sale and returns the gateway-assigned
// document number. This is the single point where a till transaction becomes
// durable. The document's client reference travels as the idempotency key so
// a retried POST, or a response lost after the gateway committed, cannot
// book the document twice.
func (c *Client) CreateDocument(ctx context.Context, doc Document) (string, error) {
	var out struct {
		DocumentNumber string `json:"documentNumber"`
	}
	var headers http.Header
	if ref := strings.TrimSpace(doc.ClientRef); ref != "" {
		headers = http.Header{"Idempotency-Key": {ref}}
	}
	if err := c.doHeaders(ctx, http.MethodPost, "/pos/documents", nil, headers, doc, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.DocumentNumber) == "" {
		return "", fmt.Errorf("gateway: empty document number: %w", ErrUnavailable)
	}
	return out.DocumentNumber, nil
}

// Login exchanges operator credentials for a gateway session token.
func (c *Client) Login(ctx context.Context, operator, password string) (Token, error) {
	body := map[string]string{"operator": operator, "password": password}
	var out Token
	if err := c.do(ctx, http.MethodPost, "/pos/login", nil, body, &out); err != nil {
		return Token{}, err
	}
	return out, nil
}

// SalesDaily returns per-day sales figures for the dashboard.
func (c *Client) SalesDaily(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	q := url.Values{
		"from": {from.Format("2006-01-02")},
		"to":   {to.Format("2006-01-02")},
	}
	var out struct {
		Days []DailySales `json:"days"`
	}
	if err := c.do(ctx, http.MethodGet, "/pos/analytics/sales", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Days, nil
}

// TopProducts returns the best sellers for the dashboard.
func (c *Client) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	var out struct {
		Products []TopProduct `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/pos/analytics/top-products", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// Ping probes gateway reachability for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/pos/ping", nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.doHeaders(ctx, method, path, query, nil, body, out)
}

func (c *Client) doHeaders(ctx context.Context, method, path string, query url.Values, headers http.Header, body, out any) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("gateway: %s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: decode response: %w", err)
	}
	return nil
}

// wireProduct mirrors the gateway's ERP-flavoured product shape.
type wireProduct struct {
	StockCode         string            `json:"stockCode"`
	Description       string            `json:"description1"`
	Barcode           string            `json:"barcode"`
	SellingPriceCents int64             `json:"sellingPriceCents"`
	VATCode           string            `json:"vatCode"`
	OnHand            int               `json:"qtyOnHand"`
	Extra             map[string]string `json:"extra"`
}

func (w wireProduct) toProduct() Product {
	return Product{
		Code:        w.StockCode,
		Description: w.Description,
		Barcode:     w.Barcode,
		UnitPrice:   w.SellingPriceCents,
		VATCode:     w.VATCode,
		OnHand:      w.OnHand,
		Extra:       w.Extra,
	}
}

type wirePrice struct {
	StockCode          string `json:"stockCode"`
	SellingPriceCents  int64  `json:"sellingPriceCents"`
	CostPriceExclCents int64  `json:"costPriceExclCents"`
}

type wireInvoiceLine struct {
	StockCode      string `json:"stockCode"`
	Description    string `json:"description1"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}
