package sale

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested sale session could not be located.
var ErrNotFound = errors.New("sale not found")

// ErrLineNotFound indicates the referenced line does not exist on the sale.
var ErrLineNotFound = errors.New("sale line not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrEmptySale is returned when finalizing a sale with no lines.
var ErrEmptySale = errors.New("sale has no lines")

// ErrItemNotOnInvoice rejects a return line whose product was not part of the
// invoice being returned against.
var ErrItemNotOnInvoice = errors.New("item not on original invoice")

// ErrReturnQtyExceeded rejects a return line or edit whose cumulative quantity
// would exceed the quantity originally invoiced.
var ErrReturnQtyExceeded = errors.New("return quantity exceeds original invoice")

// ErrBelowCost rejects a price below the item's cost floor.
var ErrBelowCost = errors.New("cannot sell below cost")

// ErrInsufficientTender is returned when the tendered amount does not cover
// the sale total.
var ErrInsufficientTender = errors.New("insufficient tender")

// ErrDocumentCreation is returned when the gateway rejected the finalized
// document and no offline fallback was possible.
var ErrDocumentCreation = errors.New("document creation failed")

// QtyCapError details a return-quantity rejection so the till can present an
// actionable message.
type QtyCapError struct {
	ProductCode string
	Already     int
	Requested   int
	Max         int
}

func (e *QtyCapError) Error() string {
	return fmt.Sprintf("%s: %d already added, %d requested, %d allowed on invoice",
		e.ProductCode, e.Already, e.Requested, e.Max)
}

func (e *QtyCapError) Unwrap() error { return ErrReturnQtyExceeded }

// TenderError details a cash shortfall at finalize time.
type TenderError struct {
	Total    int64
	Tendered int64
}

func (e *TenderError) Error() string {
	return fmt.Sprintf("tendered %d does not cover total %d", e.Tendered, e.Total)
}

func (e *TenderError) Unwrap() error { return ErrInsufficientTender }

// BelowCostError details a price-floor rejection.
type BelowCostError struct {
	ProductCode string
	Price       int64
	Floor       int64
}

func (e *BelowCostError) Error() string {
	return fmt.Sprintf("%s: price %d below cost floor %d", e.ProductCode, e.Price, e.Floor)
}

func (e *BelowCostError) Unwrap() error { return ErrBelowCost }
