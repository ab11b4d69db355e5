package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-pos/internal/analytics"
	"github.com/noah-isme/backend-pos/internal/gateway"
)

type stubSource struct {
	salesCalls int
	topCalls   int
}

func (s *stubSource) SalesDaily(_ context.Context, from, _ time.Time) ([]gateway.DailySales, error) {
	s.salesCalls++
	return []gateway.DailySales{{Date: from.Format("2006-01-02"), Documents: 12, Revenue: 450000}}, nil
}

func (s *stubSource) TopProducts(context.Context, int) ([]gateway.TopProduct, error) {
	s.topCalls++
	return []gateway.TopProduct{{Code: "PEN001", Description: "Ballpoint pen", QtySold: 40, Revenue: 600000}}, nil
}

func TestSalesRangeCached(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &stubSource{}
	svc := &analytics.Service{Source: source, R: rdb, TTL: time.Minute, DefaultRange: 30}
	from := time.Now().Add(-24 * time.Hour).Truncate(24 * time.Hour)
	to := time.Now().Truncate(24 * time.Hour)
	if _, err := svc.SalesRange(context.Background(), from, to); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.SalesRange(context.Background(), from, to); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if source.salesCalls != 1 {
		t.Fatalf("expected 1 gateway call, got %d", source.salesCalls)
	}
}

func TestTopProductsCached(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &stubSource{}
	svc := &analytics.Service{Source: source, R: rdb, TTL: time.Minute}
	for i := 0; i < 3; i++ {
		rows, err := svc.TopProducts(context.Background(), 10)
		if err != nil {
			t.Fatalf("TopProducts: %v", err)
		}
		if len(rows) != 1 || rows[0].Code != "PEN001" {
			t.Fatalf("rows = %+v", rows)
		}
	}
	if source.topCalls != 1 {
		t.Fatalf("expected 1 gateway call, got %d", source.topCalls)
	}
}
