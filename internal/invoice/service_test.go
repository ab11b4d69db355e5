package invoice

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
	invoices map[string][]gateway.InvoiceLine
	calls    int
}

func (c *countingSource) InvoiceLines(_ context.Context, invoiceNo string) ([]gateway.InvoiceLine, error) {
	c.calls++
	lines, ok := c.invoices[invoiceNo]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return lines, nil
}

func TestLinesCachesIssuedInvoices(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	src := &countingSource{invoices: map[string][]gateway.InvoiceLine{
		"INV-55": {{ProductCode: "A11159A", Description: "Widget", Qty: 4, UnitPrice: 125050}},
	}}
	svc := &Service{Source: src, Cache: cache.New(client, time.Minute), Logger: zerolog.Nop()}

	ctx := context.Background()
	first, err := svc.Lines(ctx, "INV-55")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := svc.Lines(ctx, "INV-55")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected one gateway call, got %d", src.calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].UnitPrice != 125050 {
		t.Fatalf("unexpected lines: %+v / %+v", first, second)
	}
}

func TestLinesUnknownInvoice(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := &Service{
		Source: &countingSource{invoices: map[string][]gateway.InvoiceLine{}},
		Cache:  cache.New(client, time.Minute),
		Logger: zerolog.Nop(),
	}

	if _, err := svc.Lines(context.Background(), "MISSING"); err == nil {
		t.Fatal("expected error for unknown invoice")
	}
}

func TestLinesRejectsEmptyNumber(t *testing.T) {
	svc := &Service{Source: &countingSource{}, Cache: cache.New(nil, time.Minute), Logger: zerolog.Nop()}
	if _, err := svc.Lines(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty invoice number")
	}
}
