package pricelist

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/gateway"
)

type stubSource struct {
	prices []gateway.EnrichedPrice
	err    error
}

func (s stubSource) PriceList(context.Context, []string, string) ([]gateway.EnrichedPrice, error) {
	return s.prices, s.err
}

func TestEnrichAppliesCategoryPrices(t *testing.T) {
	e := &Enricher{
		Source: stubSource{prices: []gateway.EnrichedPrice{
			{Code: "PEN001", Price: 13500, ExclCost: 9000},
		}},
		Logger: zerolog.Nop(),
	}
	got := e.Enrich(context.Background(), []gateway.Product{
		{Code: "pen001", UnitPrice: 15000},
		{Code: "INK002", UnitPrice: 4200},
	}, "B")

	if p := got["PEN001"]; p.UnitPrice != 13500 || p.CostFloor != 9000 {
		t.Fatalf("PEN001 = %+v, want 13500/9000", p)
	}
	if p := got["INK002"]; p.UnitPrice != 4200 || p.CostFloor != 0 {
		t.Fatalf("INK002 = %+v, want base price 4200", p)
	}
}

func TestEnrichFallsBackOnError(t *testing.T) {
	e := &Enricher{
		Source: stubSource{err: errors.New("gateway timeout")},
		Logger: zerolog.Nop(),
	}
	got := e.Enrich(context.Background(), []gateway.Product{
		{Code: "PEN001", UnitPrice: 15000},
	}, "A")
	if p := got["PEN001"]; p.UnitPrice != 15000 {
		t.Fatalf("fallback price = %d, want 15000", p.UnitPrice)
	}
}

func TestEnrichNilSourceKeepsBasePrices(t *testing.T) {
	var e *Enricher
	got := e.Enrich(context.Background(), []gateway.Product{{Code: "X", UnitPrice: 100}}, "")
	if got["X"].UnitPrice != 100 {
		t.Fatalf("got %+v", got["X"])
	}
}
