package gateway

import (
	"time"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Product is a catalog item as resolved from the gateway. Prices are minor
// units. Extra carries ERP fields the till passes through untouched.
type Product struct {
	Code        string            `json:"code"`
	Description string            `json:"description"`
	Barcode     string            `json:"barcode,omitempty"`
	UnitPrice   pricing.Money     `json:"unitPrice"`
	VATCode     string            `json:"vatCode"`
	OnHand      int               `json:"onHand"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// EnrichedPrice is the VAT-aware price for one product in a price category.
// ExclCost, when present, is the tax-exclusive cost used as the selling floor
// for zero-rated items.
type EnrichedPrice struct {
	Code     string        `json:"code"`
	Price    pricing.Money `json:"price"`
	ExclCost pricing.Money `json:"exclCost,omitempty"`
}

// InvoiceLine is one line of a previously issued invoice.
type InvoiceLine struct {
	ProductCode string        `json:"productCode"`
	Description string        `json:"description"`
	Qty         int           `json:"qty"`
	UnitPrice   pricing.Money `json:"unitPrice"`
}

// Customer is an account record from the gateway.
type Customer struct {
	Account       string `json:"account"`
	Name          string `json:"name"`
	PriceCategory string `json:"priceCategory,omitempty"`
	Balance       int64  `json:"balance,omitempty"`
}

// DocumentLine is one line of an outbound sale document.
type DocumentLine struct {
	ProductCode   string        `json:"stockCode,omitempty"`
	Description   string        `json:"description"`
	Qty           int           `json:"quantity"`
	UnitPrice     pricing.Money `json:"unitPriceCents"`
	DiscountValue int64         `json:"discountValue"`
	DiscountType  string        `json:"discountType"`
}

// Document is the finalized sale pushed to the gateway. The gateway assigns
// the durable document number.
type Document struct {
	// ClientRef is the till-side sale session id. It keys idempotent
	// document creation across retries and offline replays.
	ClientRef         string         `json:"clientRef,omitempty"`
	Type              string         `json:"documentType"`
	CustomerAccount   string         `json:"customerAccount,omitempty"`
	Warehouse         string         `json:"warehouse"`
	SalesRep          string         `json:"salesRep"`
	VATIndicator      string         `json:"vatIndicator"`
	Date              time.Time      `json:"documentDate"`
	Reference         string         `json:"reference,omitempty"`
	OriginalInvoiceNo string         `json:"originalInvoiceNo,omitempty"`
	Lines             []DocumentLine `json:"lines"`
	Subtotal          pricing.Money  `json:"subtotalCents"`
	Discount          pricing.Money  `json:"discountCents"`
	VAT               pricing.Money  `json:"vatCents"`
	Total             pricing.Money  `json:"totalCents"`
	Tendered          pricing.Money  `json:"tenderedCents,omitempty"`
}

// Token is the session credential issued by the gateway at login.
type Token struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Operator    string    `json:"operator"`
}

// DailySales is one day of the sales dashboard.
type DailySales struct {
	Date      string        `json:"date"`
	Documents int           `json:"documents"`
	Revenue   pricing.Money `json:"revenue"`
}

// TopProduct is one row of the top-products dashboard.
type TopProduct struct {
	Code        string        `json:"code"`
	Description string        `json:"description"`
	QtySold     int           `json:"qtySold"`
	Revenue     pricing.Money `json:"revenue"`
}
