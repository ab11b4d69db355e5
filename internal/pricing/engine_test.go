package pricing

import "testing"

func TestLineDiscountPercent(t *testing.T) {
	// 10% of 150.00 x 2
	discount := LineDiscount(15000, 2, 1000, DiscountPercent)
	if discount != 3000 {
		t.Fatalf("expected 3000 discount, got %d", discount)
	}
}

func TestLineDiscountFixedClamped(t *testing.T) {
	// fixed 500.00 against a 100.00 gross line clamps to the gross value
	discount := LineDiscount(10000, 1, 50000, DiscountFixed)
	if discount != 10000 {
		t.Fatalf("expected clamp to 10000, got %d", discount)
	}
}

func TestLineDiscountNeverNegative(t *testing.T) {
	cases := []struct {
		name  string
		price Money
		qty   int
		value int64
		kind  DiscountType
	}{
		{"zero value percent", 15000, 2, 0, DiscountPercent},
		{"negative value", 15000, 2, -500, DiscountFixed},
		{"return quantity percent", 15000, -3, 1000, DiscountPercent},
		{"return quantity fixed", 15000, -3, 2000, DiscountFixed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LineDiscount(tc.price, tc.qty, tc.value, tc.kind)
			if got < 0 {
				t.Fatalf("discount went negative: %d", got)
			}
			gross := tc.price * Money(tc.qty)
			if gross < 0 {
				gross = -gross
			}
			if tc.kind == DiscountFixed && got > gross {
				t.Fatalf("fixed discount %d exceeds gross %d", got, gross)
			}
		})
	}
}

func TestComputeTotals(t *testing.T) {
	// one line 150.00 x 2 with 10% discount at 15% VAT
	lines := []Line{{Qty: 2, UnitPrice: 15000, DiscountValue: 1000, DiscountType: DiscountPercent}}
	summary := Compute(lines, 1500)
	if summary.Subtotal != 30000 {
		t.Fatalf("subtotal: expected 30000, got %d", summary.Subtotal)
	}
	if summary.Discount != 3000 {
		t.Fatalf("discount: expected 3000, got %d", summary.Discount)
	}
	if summary.SubtotalAfterDiscount != 27000 {
		t.Fatalf("after discount: expected 27000, got %d", summary.SubtotalAfterDiscount)
	}
	if summary.VAT != 4050 {
		t.Fatalf("vat: expected 4050, got %d", summary.VAT)
	}
	if summary.Total != 31050 {
		t.Fatalf("total: expected 31050, got %d", summary.Total)
	}
}

func TestComputeConsistency(t *testing.T) {
	lines := []Line{
		{Qty: 2, UnitPrice: 15000, DiscountValue: 1000, DiscountType: DiscountPercent},
		{Qty: -1, UnitPrice: 125050},
		{Qty: 3, UnitPrice: 999, DiscountValue: 150, DiscountType: DiscountFixed},
	}
	summary := Compute(lines, 1500)
	if summary.SubtotalAfterDiscount != summary.Subtotal-summary.Discount {
		t.Fatalf("after-discount %d != subtotal %d - discount %d",
			summary.SubtotalAfterDiscount, summary.Subtotal, summary.Discount)
	}
	if summary.Total != summary.SubtotalAfterDiscount+summary.VAT {
		t.Fatalf("total %d != after-discount %d + vat %d",
			summary.Total, summary.SubtotalAfterDiscount, summary.VAT)
	}
}

func TestComputeSignedSubtotal(t *testing.T) {
	lines := []Line{{Qty: -4, UnitPrice: 125050}}
	summary := Compute(lines, 1500)
	if summary.Subtotal != -500200 {
		t.Fatalf("expected -500200 subtotal, got %d", summary.Subtotal)
	}
	if summary.Total >= 0 {
		t.Fatalf("expected negative total for a return, got %d", summary.Total)
	}
}

func TestToCents(t *testing.T) {
	cases := []struct {
		in   float64
		want Money
	}{
		{310.5, 31050},
		{0.1, 10},
		{1250.50, 125050},
		{-12.345, -1235},
		{0, 0},
	}
	for _, tc := range cases {
		if got := ToCents(tc.in); got != tc.want {
			t.Fatalf("ToCents(%v): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestSufficientAvoidsFloatDrift(t *testing.T) {
	// 0.1+0.2 != 0.3 in float arithmetic; cent conversion makes them equal
	total := ToCents(0.1) + ToCents(0.2)
	tendered := ToCents(0.3)
	if !Sufficient(total, tendered) {
		t.Fatalf("expected tendered %d to cover total %d", tendered, total)
	}
	if Sufficient(total, tendered-1) {
		t.Fatalf("expected short tender to be insufficient")
	}
}
