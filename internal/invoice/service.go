package invoice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cache"
	"github.com/noah-isme/backend-pos/internal/gateway"
)

// Source fetches invoice lines from the gateway.
type Source interface {
	InvoiceLines(ctx context.Context, invoiceNo string) ([]gateway.InvoiceLine, error)
}

// Service looks up the lines of previously issued invoices so returns can be
// validated against what was actually sold. Issued invoices are immutable,
// which makes them safe to cache for the full TTL.
type Service struct {
	Source Source
	Cache  *cache.Cache
	Logger zerolog.Logger
}

// Lines returns the lines of one invoice.
func (s *Service) Lines(ctx context.Context, invoiceNo string) ([]gateway.InvoiceLine, error) {
	invoiceNo = strings.TrimSpace(invoiceNo)
	if invoiceNo == "" {
		return nil, fmt.Errorf("invoice: empty invoice number")
	}
	key := cache.KeyInvoiceLines(invoiceNo)
	var cached []gateway.InvoiceLine
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	lines, err := s.Source.InvoiceLines(ctx, invoiceNo)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.SetJSON(ctx, key, lines); err != nil {
		s.Logger.Warn().Err(err).Str("invoice_no", invoiceNo).Msg("invoice cache write failed")
	}
	return lines, nil
}
