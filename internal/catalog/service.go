package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cache"
	"github.com/noah-isme/backend-pos/internal/gateway"
)

// Source is the gateway surface the catalog depends on.
type Source interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]gateway.Product, error)
	GetProduct(ctx context.Context, code string) (gateway.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (gateway.Product, error)
}

// Service resolves products from the gateway with a read-through cache. The
// cache keeps scan latency flat while the gateway remains the source of
// truth for stock and pricing.
type Service struct {
	Source Source
	Cache  *cache.Cache
	Logger zerolog.Logger
}

// Search queries the catalog by free text or code prefix.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]gateway.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("catalog: empty search query")
	}
	key := cache.KeyProductSearch(query, limit)
	var cached []gateway.Product
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	products, err := s.Source.SearchProducts(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, key, products); err != nil {
		s.Logger.Warn().Err(err).Msg("catalog search cache write failed")
	}
	return products, nil
}

// Lookup resolves a product by stock code, falling back to a barcode lookup
// when the code is unknown. Till operators scan far more than they type.
func (s *Service) Lookup(ctx context.Context, code string) (gateway.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return gateway.Product{}, fmt.Errorf("catalog: empty product code")
	}
	key := cache.KeyProduct(code)
	var cached gateway.Product
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	product, err := s.Source.GetProduct(ctx, code)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return s.ByBarcode(ctx, code)
		}
		return gateway.Product{}, err
	}
	if err := s.Cache.SetJSON(ctx, key, product); err != nil {
		s.Logger.Warn().Err(err).Str("code", code).Msg("catalog cache write failed")
	}
	return product, nil
}

// ByBarcode resolves a product from a scanned barcode.
func (s *Service) ByBarcode(ctx context.Context, barcode string) (gateway.Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return gateway.Product{}, fmt.Errorf("catalog: empty barcode")
	}
	key := cache.KeyBarcode(barcode)
	var cached gateway.Product
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	product, err := s.Source.GetProductByBarcode(ctx, barcode)
	if err != nil {
		return gateway.Product{}, err
	}
	if err := s.Cache.SetJSON(ctx, key, product); err != nil {
		s.Logger.Warn().Err(err).Str("barcode", barcode).Msg("catalog cache write failed")
	}
	return product, nil
}
