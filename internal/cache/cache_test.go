package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := New(client, time.Minute)
	ctx := context.Background()

	type payload struct {
		Code  string `json:"code"`
		Price int64  `json:"price"`
	}
	if err := c.SetJSON(ctx, KeyProduct("pen001"), payload{Code: "PEN001", Price: 15000}); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	var got payload
	ok, err := c.GetJSON(ctx, KeyProduct("PEN001"), &got)
	if err != nil || !ok {
		t.Fatalf("GetJSON ok=%v err=%v", ok, err)
	}
	if got.Price != 15000 {
		t.Fatalf("price = %d, want 15000", got.Price)
	}

	if err := c.Delete(ctx, KeyProduct("PEN001")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err = c.GetJSON(ctx, KeyProduct("PEN001"), &got)
	if err != nil || ok {
		t.Fatalf("deleted key ok=%v err=%v", ok, err)
	}
}

func TestCacheNilClientIsNoop(t *testing.T) {
	var c *Cache
	ok, err := c.GetJSON(context.Background(), "k", nil)
	if err != nil || ok {
		t.Fatalf("nil cache ok=%v err=%v", ok, err)
	}
	if err := c.SetJSON(context.Background(), "k", 1); err != nil {
		t.Fatalf("nil cache SetJSON: %v", err)
	}
}
