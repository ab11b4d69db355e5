package sale

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Type identifies the transaction kind of a sale session.
type Type string

const (
	TypeCash          Type = "cash"
	TypeAccount       Type = "account"
	TypeReturn        Type = "return"
	TypeAccountReturn Type = "account-return"
	TypeOrder         Type = "order"
	TypeQuotation     Type = "quotation"
)

// ParseType validates and normalises a transaction type string.
func ParseType(value string) (Type, bool) {
	switch t := Type(strings.ToLower(strings.TrimSpace(value))); t {
	case TypeCash, TypeAccount, TypeReturn, TypeAccountReturn, TypeOrder, TypeQuotation:
		return t, true
	default:
		return "", false
	}
}

// IsReturn reports whether the type represents goods flowing back to stock.
func (t Type) IsReturn() bool {
	return t == TypeReturn || t == TypeAccountReturn
}

// Customer references the account the sale is booked against. Nil on the sale
// means a walk-in cash customer.
type Customer struct {
	Account string `json:"account"`
	Name    string `json:"name"`
}

// Header carries the document header fields forwarded to the gateway at
// finalize time. The sale engine itself never interprets them.
type Header struct {
	Date          time.Time `json:"date"`
	Warehouse     string    `json:"warehouse"`
	SalesRep      string    `json:"salesRep"`
	VATIndicator  string    `json:"vatIndicator"`
	PriceCategory string    `json:"priceCategory"`
	Reference     string    `json:"reference,omitempty"`
}

// Line is a single sale entry. Qty is signed: negative for returns. Attrs
// carries opaque ERP passthrough fields; nothing in the engine reads them.
type Line struct {
	ID            uuid.UUID            `json:"id"`
	ProductCode   string               `json:"productCode,omitempty"`
	Description   string               `json:"description"`
	Qty           int                  `json:"qty"`
	UnitPrice     pricing.Money        `json:"unitPrice"`
	DiscountValue int64                `json:"discountValue"`
	DiscountType  pricing.DiscountType `json:"discountType"`
	CostFloor     pricing.Money        `json:"-"`
	Attrs         map[string]string    `json:"attrs,omitempty"`
}

// Sundry reports whether the line has no backing catalog product.
func (l Line) Sundry() bool {
	return strings.TrimSpace(l.ProductCode) == ""
}

// Discount returns the monetary discount for the line.
func (l Line) Discount() pricing.Money {
	return pricing.LineDiscount(l.UnitPrice, l.Qty, l.DiscountValue, l.DiscountType)
}

// Total returns the line value net of its discount.
func (l Line) Total() pricing.Money {
	return l.UnitPrice*pricing.Money(l.Qty) - l.Discount()
}

// InvoiceLine is a snapshot of one line of the invoice a return is made
// against. Qty and UnitPrice are as originally sold.
type InvoiceLine struct {
	ProductCode string        `json:"productCode"`
	Description string        `json:"description"`
	Qty         int           `json:"qty"`
	UnitPrice   pricing.Money `json:"unitPrice"`
}

// Sale is the in-memory state of one open till transaction. It lives only for
// the duration of the transaction; the durable document is owned by the
// gateway once finalized.
type Sale struct {
	ID                   uuid.UUID     `json:"id"`
	Type                 Type          `json:"type"`
	Customer             *Customer     `json:"customer,omitempty"`
	Header               Header        `json:"header"`
	Lines                []Line        `json:"lines"`
	OriginalInvoiceNo    string        `json:"originalInvoiceNo,omitempty"`
	OriginalInvoiceLines []InvoiceLine `json:"originalInvoiceLines,omitempty"`
	Unallocated          bool          `json:"unallocated"`
	CreatedAt            time.Time     `json:"createdAt"`
}

// Clone returns a deep copy of the sale. Readers get clones so they never
// share memory with a session being edited under the store lock.
func (s *Sale) Clone() *Sale {
	if s == nil {
		return nil
	}
	out := *s
	if s.Customer != nil {
		c := *s.Customer
		out.Customer = &c
	}
	if s.Lines != nil {
		out.Lines = make([]Line, len(s.Lines))
		copy(out.Lines, s.Lines)
		for i := range out.Lines {
			if attrs := out.Lines[i].Attrs; attrs != nil {
				cp := make(map[string]string, len(attrs))
				for k, v := range attrs {
					cp[k] = v
				}
				out.Lines[i].Attrs = cp
			}
		}
	}
	if s.OriginalInvoiceLines != nil {
		out.OriginalInvoiceLines = make([]InvoiceLine, len(s.OriginalInvoiceLines))
		copy(out.OriginalInvoiceLines, s.OriginalInvoiceLines)
	}
	return &out
}

// ReturnValidated reports whether the sale must validate lines against the
// original invoice: a return with an attached invoice that is not flagged
// unallocated.
func (s *Sale) ReturnValidated() bool {
	return s.Type.IsReturn() && len(s.OriginalInvoiceLines) > 0 && !s.Unallocated
}

// FindLine returns the line with the given id, or nil.
func (s *Sale) FindLine(id uuid.UUID) *Line {
	for i := range s.Lines {
		if s.Lines[i].ID == id {
			return &s.Lines[i]
		}
	}
	return nil
}

// PricingLines converts the sale's lines for totals calculation.
func (s *Sale) PricingLines() []pricing.Line {
	out := make([]pricing.Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		out = append(out, pricing.Line{
			Qty:           l.Qty,
			UnitPrice:     l.UnitPrice,
			DiscountValue: l.DiscountValue,
			DiscountType:  l.DiscountType,
		})
	}
	return out
}
