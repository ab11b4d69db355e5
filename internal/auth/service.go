package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/gateway"
)

// LoginProvider checks operator credentials against the ERP gateway.
type LoginProvider interface {
	Login(ctx context.Context, operator, password string) (gateway.Token, error)
}

// LoginResult is the session issued to the till after a successful login.
type LoginResult struct {
	Operator    string    `json:"operator"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Service authenticates till operators. Credentials are verified by the
// gateway; the session token handed to the till is signed locally so requests
// keep working while the gateway connection flaps mid-shift.
type Service struct {
	Gateway   LoginProvider
	Secret    []byte
	Issuer    string
	TokenTTL  time.Duration
	Algorithm jwa.SignatureAlgorithm
	ClockSkew time.Duration
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) algorithm() jwa.SignatureAlgorithm {
	if s.Algorithm != "" {
		return s.Algorithm
	}
	return jwa.HS256
}

// Login verifies the operator against the gateway and issues a session token.
func (s *Service) Login(ctx context.Context, operator, password string) (LoginResult, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" || password == "" {
		return LoginResult{}, common.NewAppError("VALIDATION_ERROR", "operator and password are required", http.StatusBadRequest, nil)
	}
	remote, err := s.Gateway.Login(ctx, operator, password)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return LoginResult{}, common.NewAppError("UNAUTHORIZED", "invalid operator credentials", http.StatusUnauthorized, err)
		}
		if errors.Is(err, gateway.ErrUnavailable) {
			return LoginResult{}, common.NewAppError("GATEWAY_UNAVAILABLE", "operator login temporarily unavailable", http.StatusBadGateway, err)
		}
		return LoginResult{}, err
	}
	if remote.Operator != "" {
		operator = remote.Operator
	}

	expiry := s.now().Add(s.tokenTTL())
	token, err := s.signToken(operator, expiry)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign session token: %w", err)
	}
	return LoginResult{Operator: operator, AccessToken: token, ExpiresAt: expiry}, nil
}

func (s *Service) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return 12 * time.Hour
}

func (s *Service) signToken(operator string, expiry time.Time) (string, error) {
	builder := jwt.NewBuilder().
		Subject(operator).
		IssuedAt(s.now()).
		Expiration(expiry)
	if s.Issuer != "" {
		builder = builder.Issuer(s.Issuer)
	}
	tok, err := builder.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(s.algorithm(), s.Secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// ParseAccessToken verifies a session token and returns the operator id.
func (s *Service) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != s.algorithm() {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.Secret))
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(s.now)),
	}
	if s.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(s.ClockSkew))
	}
	if s.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.Issuer))
	}
	if err := jwt.Validate(parsed, options...); err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	return parsed.Subject(), nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	alg := headers.Algorithm()
	if alg == "" || alg == jwa.NoSignature {
		return "", errors.New("auth: token missing usable algorithm")
	}
	return alg, nil
}
