package pricing

import "math"

// Money represents a monetary value stored in minor units.
type Money = int64

// ToCents converts a decimal amount into minor units using half-away-from-zero
// rounding. Amounts arriving as JSON numbers must pass through here before any
// comparison or arithmetic; comparing raw floats produces spurious mismatches
// at the tender step.
func ToCents(value float64) Money {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	if value < 0 {
		return -Money(math.Floor(-value*100 + 0.5))
	}
	return Money(math.Floor(value*100 + 0.5))
}

// FromCents converts minor units back to a decimal amount for presentation.
func FromCents(value Money) float64 {
	return float64(value) / 100
}

// Sufficient reports whether the tendered amount covers the total. Both values
// are minor units, so the comparison is exact.
func Sufficient(total, tendered Money) bool {
	return tendered >= total
}
