package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

type stubChecker struct {
	db      error
	redis   error
	gateway error
}

func (c stubChecker) PingDB(context.Context, time.Duration) error      { return c.db }
func (c stubChecker) PingRedis(context.Context, time.Duration) error   { return c.redis }
func (c stubChecker) PingGateway(context.Context, time.Duration) error { return c.gateway }

func TestReadyAllHealthy(t *testing.T) {
	h := Handler{Checker: stubChecker{}}
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest("GET", "/health/ready", nil))

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["gateway"] != "ok" {
		t.Fatalf("unexpected gateway status: %q", body["gateway"])
	}
}

func TestReadyGatewayDownStaysReady(t *testing.T) {
	h := Handler{Checker: stubChecker{gateway: errors.New("connection refused")}}
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest("GET", "/health/ready", nil))

	if rec.Code != 200 {
		t.Fatalf("gateway outage must not fail readiness, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["gateway"] != "offline: connection refused" {
		t.Fatalf("unexpected gateway status: %q", body["gateway"])
	}
}

func TestReadyDatabaseDownFails(t *testing.T) {
	h := Handler{Checker: stubChecker{db: errors.New("timeout")}}
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest("GET", "/health/ready", nil))

	if rec.Code != 503 {
		t.Fatalf("expected 503 when the database is down, got %d", rec.Code)
	}
}
