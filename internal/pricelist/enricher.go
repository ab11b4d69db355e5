package pricelist

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/gateway"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// FallbackTotal counts enrichment calls that fell back to base prices.
var FallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "pos_pricelist_fallback_total",
	Help: "Price enrichment calls that failed and fell back to base selling prices.",
})

func init() {
	prometheus.MustRegister(FallbackTotal)
}

// Source resolves category prices for a batch of stock codes.
type Source interface {
	PriceList(ctx context.Context, codes []string, category string) ([]gateway.EnrichedPrice, error)
}

// Price is the enriched view of a single product used to seed cart lines.
type Price struct {
	UnitPrice pricing.Money
	CostFloor pricing.Money
}

// Enricher looks up customer-category prices and cost floors. All failures
// are soft: a sale must never block on the price list being unreachable, so
// lookups that fail return only the base selling prices.
type Enricher struct {
	Source Source
	Logger zerolog.Logger
}

// Enrich returns a price per stock code for the given products. Products
// missing from the gateway response keep their base selling price with a
// zero cost floor.
func (e *Enricher) Enrich(ctx context.Context, products []gateway.Product, category string) map[string]Price {
	out := make(map[string]Price, len(products))
	codes := make([]string, 0, len(products))
	for _, p := range products {
		code := strings.ToUpper(strings.TrimSpace(p.Code))
		if code == "" {
			continue
		}
		out[code] = Price{UnitPrice: p.UnitPrice}
		codes = append(codes, code)
	}
	if e == nil || e.Source == nil || len(codes) == 0 {
		return out
	}

	enriched, err := e.Source.PriceList(ctx, codes, category)
	if err != nil {
		FallbackTotal.Inc()
		e.Logger.Warn().Err(err).Str("price_category", category).Int("codes", len(codes)).
			Msg("price enrichment failed, using base prices")
		return out
	}
	for _, p := range enriched {
		code := strings.ToUpper(strings.TrimSpace(p.Code))
		base, ok := out[code]
		if !ok {
			continue
		}
		if p.Price > 0 {
			base.UnitPrice = p.Price
		}
		if p.ExclCost > 0 {
			base.CostFloor = p.ExclCost
		}
		out[code] = base
	}
	return out
}

// EnrichOne is a convenience wrapper for single-product lookups.
func (e *Enricher) EnrichOne(ctx context.Context, product gateway.Product, category string) Price {
	prices := e.Enrich(ctx, []gateway.Product{product}, category)
	code := strings.ToUpper(strings.TrimSpace(product.Code))
	if p, ok := prices[code]; ok {
		return p
	}
	return Price{UnitPrice: product.UnitPrice}
}
