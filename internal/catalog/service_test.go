package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cache"
	"github.com/noah-isme/backend-pos/internal/gateway"
)

type countingSource struct {
	products map[string]gateway.Product
	barcodes map[string]gateway.Product
	searches int
	gets     int
}

func (c *countingSource) SearchProducts(_ context.Context, query string, _ int) ([]gateway.Product, error) {
	c.searches++
	var out []gateway.Product
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

func (c *countingSource) GetProduct(_ context.Context, code string) (gateway.Product, error) {
	c.gets++
	p, ok := c.products[code]
	if !ok {
		return gateway.Product{}, gateway.ErrNotFound
	}
	return p, nil
}

func (c *countingSource) GetProductByBarcode(_ context.Context, barcode string) (gateway.Product, error) {
	p, ok := c.barcodes[barcode]
	if !ok {
		return gateway.Product{}, gateway.ErrNotFound
	}
	return p, nil
}

func newCatalog(t *testing.T) (*Service, *countingSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	src := &countingSource{
		products: map[string]gateway.Product{
			"PEN001": {Code: "PEN001", Description: "Ballpoint pen", UnitPrice: 15000},
		},
		barcodes: map[string]gateway.Product{
			"6001234567890": {Code: "PEN001", Description: "Ballpoint pen", UnitPrice: 15000},
		},
	}
	return &Service{
		Source: src,
		Cache:  cache.New(client, time.Minute),
		Logger: zerolog.Nop(),
	}, src
}

func TestLookupUsesCacheOnSecondHit(t *testing.T) {
	svc, src := newCatalog(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		p, err := svc.Lookup(ctx, "PEN001")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if p.Description != "Ballpoint pen" {
			t.Fatalf("description = %q", p.Description)
		}
	}
	if src.gets != 1 {
		t.Fatalf("gateway gets = %d, want 1", src.gets)
	}
}

func TestLookupFallsBackToBarcode(t *testing.T) {
	svc, _ := newCatalog(t)
	p, err := svc.Lookup(context.Background(), "6001234567890")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Code != "PEN001" {
		t.Fatalf("code = %q, want PEN001", p.Code)
	}
}

func TestSearchCaches(t *testing.T) {
	svc, src := newCatalog(t)
	ctx := context.Background()
	if _, err := svc.Search(ctx, "pen", 10); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := svc.Search(ctx, "pen", 10); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if src.searches != 1 {
		t.Fatalf("gateway searches = %d, want 1", src.searches)
	}
}
