package pricing

// DiscountType distinguishes percentage discounts from fixed monetary ones.
type DiscountType string

const (
	// DiscountPercent applies a basis-point fraction of the gross line value.
	DiscountPercent DiscountType = "percent"
	// DiscountFixed subtracts a fixed monetary amount from the line.
	DiscountFixed DiscountType = "fixed"
)

// ParseDiscountType normalises an input string to a known discount type,
// defaulting to percentage.
func ParseDiscountType(value string) DiscountType {
	if DiscountType(value) == DiscountFixed {
		return DiscountFixed
	}
	return DiscountPercent
}

// LineDiscount computes the monetary discount for a single line. Percentage
// values are basis points (1000 == 10%). The result is never negative and a
// fixed discount is clamped to the absolute gross line value so an oversized
// discount cannot flip the sign of the line total.
func LineDiscount(unitPrice Money, qty int, value int64, kind DiscountType) Money {
	if value <= 0 {
		return 0
	}
	gross := unitPrice * Money(qty)
	if gross < 0 {
		gross = -gross
	}
	if kind == DiscountFixed {
		if value > gross {
			return gross
		}
		return value
	}
	return (gross * value) / 10000
}
