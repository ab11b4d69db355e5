package sale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/gateway"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// DocumentCreator pushes a finalized document to the ERP gateway.
type DocumentCreator interface {
	CreateDocument(ctx context.Context, doc gateway.Document) (string, error)
}

// OfflineRecorder stores a document locally when the gateway is unreachable,
// returning a placeholder document number.
type OfflineRecorder interface {
	Record(ctx context.Context, doc gateway.Document, reason string) (string, error)
}

// Candidate is a line as proposed by the till, before validation.
type Candidate struct {
	ProductCode   string
	Description   string
	Qty           int
	UnitPrice     pricing.Money
	DiscountValue int64
	DiscountType  pricing.DiscountType
	CostFloor     pricing.Money
	Attrs         map[string]string
}

// LinePatch carries the fields of a line edit. Nil fields are left unchanged.
type LinePatch struct {
	Qty           *int
	UnitPrice     *pricing.Money
	DiscountValue *int64
	DiscountType  *pricing.DiscountType
	Description   *string
}

// Result is the outcome of finalizing a sale.
type Result struct {
	DocumentNumber string
	Offline        bool
	Summary        pricing.Summary
	Change         pricing.Money
}

// Service implements the till-side sale workflow: open a session, add and
// edit lines under the return and pricing rules, and finalize the document
// against the gateway.
type Service struct {
	Store     *Store
	Documents DocumentCreator
	Offline   OfflineRecorder
	VATBps    int
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create opens a new sale session.
func (s *Service) Create(typ Type, header Header, customer *Customer) (*Sale, error) {
	if s == nil || s.Store == nil {
		return nil, ErrNotFound
	}
	if _, ok := ParseType(string(typ)); !ok {
		return nil, fmt.Errorf("sale type %q: %w", typ, ErrInvalidInput)
	}
	if header.Date.IsZero() {
		header.Date = s.now()
	}
	sl := &Sale{
		ID:        uuid.New(),
		Type:      typ,
		Customer:  customer,
		Header:    header,
		CreatedAt: s.now(),
	}
	s.Store.Put(sl)
	return sl, nil
}

// Get returns the sale with the given id.
func (s *Service) Get(id uuid.UUID) (*Sale, error) {
	if s == nil || s.Store == nil {
		return nil, ErrNotFound
	}
	return s.Store.Get(id)
}

// Void discards an open sale session. Voiding an unknown sale is not an error.
func (s *Service) Void(id uuid.UUID) {
	if s == nil || s.Store == nil {
		return
	}
	s.Store.Delete(id)
}

// AttachCustomer books the sale against an account.
func (s *Service) AttachCustomer(id uuid.UUID, customer Customer) error {
	if strings.TrimSpace(customer.Account) == "" {
		return fmt.Errorf("customer account: %w", ErrInvalidInput)
	}
	return s.Store.Mutate(id, func(sl *Sale) error {
		sl.Customer = &customer
		return nil
	})
}

// AttachInvoice links a return sale to the invoice being returned against.
// When unallocated is true line validation against the invoice is skipped.
func (s *Service) AttachInvoice(id uuid.UUID, invoiceNo string, lines []InvoiceLine, unallocated bool) error {
	trimmed := strings.TrimSpace(invoiceNo)
	if trimmed == "" && !unallocated {
		return fmt.Errorf("invoice number: %w", ErrInvalidInput)
	}
	return s.Store.Mutate(id, func(sl *Sale) error {
		if !sl.Type.IsReturn() {
			return fmt.Errorf("sale type %q cannot reference an invoice: %w", sl.Type, ErrInvalidInput)
		}
		sl.OriginalInvoiceNo = trimmed
		sl.OriginalInvoiceLines = lines
		sl.Unallocated = unallocated
		return nil
	})
}

// AddLine validates a candidate against the sale's rules and appends it,
// consolidating with an existing undiscounted line of the same product and
// price. It returns the line the quantity ended up on.
func (s *Service) AddLine(id uuid.UUID, c Candidate) (Line, error) {
	var out Line
	err := s.Store.Mutate(id, func(sl *Sale) error {
		line, err := s.addLine(sl, c)
		if err != nil {
			return err
		}
		out = line
		return nil
	})
	return out, err
}

func (s *Service) addLine(sl *Sale, c Candidate) (Line, error) {
	c.ProductCode = strings.TrimSpace(c.ProductCode)
	if c.Qty == 0 {
		return Line{}, fmt.Errorf("quantity must be non-zero: %w", ErrInvalidInput)
	}
	if c.UnitPrice < 0 {
		return Line{}, fmt.Errorf("unit price must not be negative: %w", ErrInvalidInput)
	}
	if c.DiscountType == "" {
		c.DiscountType = pricing.DiscountPercent
	}

	if sl.Type.IsReturn() {
		c.Qty = -abs(c.Qty)
	}
	if sl.ReturnValidated() && c.ProductCode != "" {
		orig := findInvoiceLine(sl.OriginalInvoiceLines, c.ProductCode)
		if orig == nil {
			return Line{}, fmt.Errorf("%s: %w", c.ProductCode, ErrItemNotOnInvoice)
		}
		// Returns are priced as originally sold, not at today's price.
		c.UnitPrice = orig.UnitPrice
		if c.Description == "" {
			c.Description = orig.Description
		}
		already := returnedQty(sl.Lines, c.ProductCode, uuid.Nil)
		max := invoicedQty(sl.OriginalInvoiceLines, c.ProductCode)
		if already+abs(c.Qty) > max {
			return Line{}, &QtyCapError{
				ProductCode: c.ProductCode,
				Already:     already,
				Requested:   abs(c.Qty),
				Max:         max,
			}
		}
	}
	// Returns are priced as originally sold, so today's cost floor does not
	// apply to them.
	if !sl.Type.IsReturn() && c.CostFloor > 0 && c.UnitPrice < c.CostFloor {
		return Line{}, &BelowCostError{ProductCode: c.ProductCode, Price: int64(c.UnitPrice), Floor: int64(c.CostFloor)}
	}

	if merged := s.consolidate(sl, c); merged != nil {
		return *merged, nil
	}

	line := Line{
		ID:            uuid.New(),
		ProductCode:   c.ProductCode,
		Description:   c.Description,
		Qty:           c.Qty,
		UnitPrice:     c.UnitPrice,
		DiscountValue: c.DiscountValue,
		DiscountType:  c.DiscountType,
		CostFloor:     c.CostFloor,
		Attrs:         c.Attrs,
	}
	sl.Lines = append(sl.Lines, line)
	return line, nil
}

// consolidate merges the candidate into an existing line when both are plain
// product lines with no discount at the same price. Discounted lines never
// merge so a later discount edit stays scoped to its own line.
func (s *Service) consolidate(sl *Sale, c Candidate) *Line {
	if c.ProductCode == "" || c.DiscountValue != 0 || c.DiscountType != pricing.DiscountPercent {
		return nil
	}
	for i := range sl.Lines {
		l := &sl.Lines[i]
		if l.Sundry() || !strings.EqualFold(l.ProductCode, c.ProductCode) {
			continue
		}
		if l.UnitPrice != c.UnitPrice || l.DiscountValue != 0 || l.DiscountType != pricing.DiscountPercent {
			continue
		}
		l.Qty += c.Qty
		return l
	}
	return nil
}

// UpdateLine applies a patch to an existing line, revalidating the return cap
// and the cost floor.
func (s *Service) UpdateLine(id, lineID uuid.UUID, patch LinePatch) (Line, error) {
	var out Line
	err := s.Store.Mutate(id, func(sl *Sale) error {
		line := sl.FindLine(lineID)
		if line == nil {
			return fmt.Errorf("line %s: %w", lineID, ErrLineNotFound)
		}
		next := *line
		if patch.Qty != nil {
			next.Qty = *patch.Qty
		}
		if patch.UnitPrice != nil {
			next.UnitPrice = *patch.UnitPrice
		}
		if patch.DiscountValue != nil {
			next.DiscountValue = *patch.DiscountValue
		}
		if patch.DiscountType != nil {
			next.DiscountType = *patch.DiscountType
		}
		if patch.Description != nil {
			next.Description = *patch.Description
		}

		if next.Qty == 0 {
			return fmt.Errorf("quantity must be non-zero: %w", ErrInvalidInput)
		}
		if next.UnitPrice < 0 {
			return fmt.Errorf("unit price must not be negative: %w", ErrInvalidInput)
		}
		if next.DiscountValue < 0 {
			return fmt.Errorf("discount value must not be negative: %w", ErrInvalidInput)
		}
		if sl.Type.IsReturn() {
			next.Qty = -abs(next.Qty)
		}
		if sl.ReturnValidated() && !next.Sundry() {
			already := returnedQty(sl.Lines, next.ProductCode, next.ID)
			max := invoicedQty(sl.OriginalInvoiceLines, next.ProductCode)
			if already+abs(next.Qty) > max {
				return &QtyCapError{
					ProductCode: next.ProductCode,
					Already:     already,
					Requested:   abs(next.Qty),
					Max:         max,
				}
			}
		}
		if !sl.Type.IsReturn() && next.CostFloor > 0 && next.UnitPrice < next.CostFloor {
			return &BelowCostError{ProductCode: next.ProductCode, Price: int64(next.UnitPrice), Floor: int64(next.CostFloor)}
		}

		*line = next
		out = next
		return nil
	})
	return out, err
}

// RemoveLine deletes a line. Removing a line that is already gone succeeds.
func (s *Service) RemoveLine(id, lineID uuid.UUID) error {
	return s.Store.Mutate(id, func(sl *Sale) error {
		for i := range sl.Lines {
			if sl.Lines[i].ID == lineID {
				sl.Lines = append(sl.Lines[:i], sl.Lines[i+1:]...)
				return nil
			}
		}
		return nil
	})
}

// Totals computes the running totals for the sale. It reads under the store
// lock so a concurrent line edit never yields a torn summary.
func (s *Service) Totals(id uuid.UUID) (pricing.Summary, error) {
	if s == nil || s.Store == nil {
		return pricing.Summary{}, ErrNotFound
	}
	var out pricing.Summary
	err := s.Store.View(id, func(sl *Sale) error {
		out = pricing.Compute(sl.PricingLines(), s.VATBps)
		return nil
	})
	return out, err
}

// Finalize closes the sale: it checks the tender for cash sales, pushes the
// document to the gateway and drops the session. When the gateway is
// unreachable and allowOffline is set, the document is recorded locally under
// a placeholder number for later sync. The whole close runs under the store
// lock, so the document always reflects exactly the lines the session held
// when it was dropped.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID, tendered pricing.Money, allowOffline bool) (Result, error) {
	if s == nil || s.Store == nil {
		return Result{}, ErrNotFound
	}
	var result Result
	err := s.Store.Finish(id, func(sl *Sale) error {
		if len(sl.Lines) == 0 {
			return fmt.Errorf("sale %s: %w", id, ErrEmptySale)
		}

		summary := pricing.Compute(sl.PricingLines(), s.VATBps)
		result = Result{Summary: summary}
		if sl.Type == TypeCash {
			if !pricing.Sufficient(summary.Total, tendered) {
				return &TenderError{Total: int64(summary.Total), Tendered: int64(tendered)}
			}
			result.Change = tendered - summary.Total
		}

		doc := s.buildDocument(sl, summary, tendered)
		number, err := s.Documents.CreateDocument(ctx, doc)
		if err != nil {
			s.Logger.Error().Err(err).Stringer("sale_id", sl.ID).Str("type", string(sl.Type)).
				Msg("document creation failed")
			if !allowOffline || s.Offline == nil {
				obs.SaleFinalizations.WithLabelValues(string(sl.Type), "error").Inc()
				return fmt.Errorf("%w: %v", ErrDocumentCreation, err)
			}
			number, rerr := s.Offline.Record(ctx, doc, err.Error())
			if rerr != nil {
				obs.SaleFinalizations.WithLabelValues(string(sl.Type), "error").Inc()
				return fmt.Errorf("%w: offline fallback also failed: %v", ErrDocumentCreation, rerr)
			}
			s.Logger.Warn().Stringer("sale_id", sl.ID).Str("document_number", number).
				Msg("document recorded offline for later sync")
			obs.SaleFinalizations.WithLabelValues(string(sl.Type), "offline").Inc()
			result.DocumentNumber = number
			result.Offline = true
			return nil
		}

		obs.SaleFinalizations.WithLabelValues(string(sl.Type), "ok").Inc()
		result.DocumentNumber = number
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (s *Service) buildDocument(sl *Sale, summary pricing.Summary, tendered pricing.Money) gateway.Document {
	lines := make([]gateway.DocumentLine, 0, len(sl.Lines))
	for _, l := range sl.Lines {
		lines = append(lines, gateway.DocumentLine{
			ProductCode:   l.ProductCode,
			Description:   l.Description,
			Qty:           l.Qty,
			UnitPrice:     l.UnitPrice,
			DiscountValue: l.DiscountValue,
			DiscountType:  string(l.DiscountType),
		})
	}
	doc := gateway.Document{
		ClientRef:         sl.ID.String(),
		Type:              string(sl.Type),
		Warehouse:         sl.Header.Warehouse,
		SalesRep:          sl.Header.SalesRep,
		VATIndicator:      sl.Header.VATIndicator,
		Date:              sl.Header.Date,
		Reference:         sl.Header.Reference,
		OriginalInvoiceNo: sl.OriginalInvoiceNo,
		Lines:             lines,
		Subtotal:          summary.Subtotal,
		Discount:          summary.Discount,
		VAT:               summary.VAT,
		Total:             summary.Total,
	}
	if sl.Customer != nil {
		doc.CustomerAccount = sl.Customer.Account
	}
	if sl.Type == TypeCash {
		doc.Tendered = tendered
	}
	return doc
}

func findInvoiceLine(lines []InvoiceLine, code string) *InvoiceLine {
	for i := range lines {
		if strings.EqualFold(lines[i].ProductCode, code) {
			return &lines[i]
		}
	}
	return nil
}

// invoicedQty totals the absolute quantity of a product across the original
// invoice, covering invoices that carried the product on several lines.
func invoicedQty(lines []InvoiceLine, code string) int {
	total := 0
	for _, l := range lines {
		if strings.EqualFold(l.ProductCode, code) {
			total += abs(l.Qty)
		}
	}
	return total
}

// returnedQty totals the absolute quantity of a product already on the sale,
// skipping the line identified by exclude.
func returnedQty(lines []Line, code string, exclude uuid.UUID) int {
	total := 0
	for _, l := range lines {
		if l.ID == exclude {
			continue
		}
		if strings.EqualFold(l.ProductCode, code) {
			total += abs(l.Qty)
		}
	}
	return total
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
