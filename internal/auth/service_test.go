package auth

import (
	"context"
	"testing"
	"time"

	"github.com/noah-isme/backend-pos/internal/gateway"
)

type stubLogin struct {
	token gateway.Token
	err   error
}

func (s stubLogin) Login(context.Context, string, string) (gateway.Token, error) {
	return s.token, s.err
}

func newAuth(t *testing.T) *Service {
	t.Helper()
	now := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	return &Service{
		Gateway:  stubLogin{token: gateway.Token{Operator: "OP01"}},
		Secret:   []byte("0123456789abcdef0123456789abcdef"),
		Issuer:   "backend-pos",
		TokenTTL: time.Hour,
		Now:      func() time.Time { return now },
	}
}

func TestLoginIssuesParsableToken(t *testing.T) {
	svc := newAuth(t)
	result, err := svc.Login(context.Background(), "op01", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Operator != "OP01" {
		t.Fatalf("operator = %q", result.Operator)
	}
	operator, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if operator != "OP01" {
		t.Fatalf("subject = %q", operator)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := newAuth(t)
	result, err := svc.Login(context.Background(), "op01", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	svc.Now = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }
	if _, err := svc.ParseAccessToken(result.AccessToken); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	svc := newAuth(t)
	result, err := svc.Login(context.Background(), "op01", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	other := newAuth(t)
	other.Secret = []byte("ffffffffffffffffffffffffffffffff")
	if _, err := other.ParseAccessToken(result.AccessToken); err == nil {
		t.Fatalf("expected token signed with another key to be rejected")
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	svc := newAuth(t)
	if _, err := svc.Login(context.Background(), "", ""); err == nil {
		t.Fatalf("expected validation error")
	}
}
