package pricing

// Line describes a sale line used for totals calculation. Qty keeps its sign:
// return lines carry negative quantities and subtract from the subtotal.
type Line struct {
	Qty           int
	UnitPrice     Money
	DiscountValue int64
	DiscountType  DiscountType
}

// Discount returns the monetary discount for the line.
func (l Line) Discount() Money {
	return LineDiscount(l.UnitPrice, l.Qty, l.DiscountValue, l.DiscountType)
}

// Total returns the line value net of its discount.
func (l Line) Total() Money {
	return l.UnitPrice*Money(l.Qty) - l.Discount()
}

// Summary aggregates computed transaction totals.
type Summary struct {
	Subtotal              Money
	Discount              Money
	SubtotalAfterDiscount Money
	VAT                   Money
	Total                 Money
}

// Compute calculates transaction totals for the provided lines. vatBps is the
// VAT rate in basis points (1500 == 15%), applied to the post-discount amount.
func Compute(lines []Line, vatBps int) Summary {
	var subtotal, discount Money
	for _, l := range lines {
		subtotal += l.UnitPrice * Money(l.Qty)
		discount += l.Discount()
	}
	after := subtotal - discount
	vat := (after * Money(vatBps)) / 10000
	return Summary{
		Subtotal:              subtotal,
		Discount:              discount,
		SubtotalAfterDiscount: after,
		VAT:                   vat,
		Total:                 after + vat,
	}
}
