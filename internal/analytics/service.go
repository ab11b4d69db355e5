package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/gateway"
)

// Source is the gateway surface the sales dashboard reads from.
type Source interface {
	SalesDaily(ctx context.Context, from, to time.Time) ([]gateway.DailySales, error)
	TopProducts(ctx context.Context, limit int) ([]gateway.TopProduct, error)
}

// Service provides cached access to gateway sales aggregates. Dashboard
// queries are expensive on the ERP side, so results are cached aggressively.
type Service struct {
	Source       Source
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// SalesRange returns daily sales between from and to.
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) ([]gateway.DailySales, error) {
	if s == nil || s.Source == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if rows, ok := s.getSalesFromCache(ctx, key); ok {
		return rows, nil
	}
	rows, err := s.Source.SalesDaily(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopProducts returns the best-selling products.
func (s *Service) TopProducts(ctx context.Context, limit int) ([]gateway.TopProduct, error) {
	if s == nil || s.Source == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	key := cacheKey("an", "top", limit)
	if rows, ok := s.getTopFromCache(ctx, key); ok {
		return rows, nil
	}
	rows, err := s.Source.TopProducts(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func (s *Service) getSalesFromCache(ctx context.Context, key string) ([]gateway.DailySales, bool) {
	if s.R == nil || s.TTL <= 0 {
		return nil, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []gateway.DailySales
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *Service) getTopFromCache(ctx context.Context, key string) ([]gateway.TopProduct, bool) {
	if s.R == nil || s.TTL <= 0 {
		return nil, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []gateway.TopProduct
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
