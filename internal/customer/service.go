package customer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cache"
	"github.com/noah-isme/backend-pos/internal/gateway"
)

// Source is the gateway surface customer lookups depend on.
type Source interface {
	SearchCustomers(ctx context.Context, query string, limit int) ([]gateway.Customer, error)
	GetCustomer(ctx context.Context, account string) (gateway.Customer, error)
}

// Service resolves debtor accounts from the gateway with a read-through
// cache. Account records change rarely within a till session.
type Service struct {
	Source Source
	Cache  *cache.Cache
	Logger zerolog.Logger
}

// Search finds accounts by name or account-code prefix.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]gateway.Customer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("customer: empty search query")
	}
	return s.Source.SearchCustomers(ctx, query, limit)
}

// Get resolves one account.
func (s *Service) Get(ctx context.Context, account string) (gateway.Customer, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return gateway.Customer{}, fmt.Errorf("customer: empty account")
	}
	key := cache.KeyCustomer(account)
	var cached gateway.Customer
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	customer, err := s.Source.GetCustomer(ctx, account)
	if err != nil {
		return gateway.Customer{}, err
	}
	if err := s.Cache.SetJSON(ctx, key, customer); err != nil {
		s.Logger.Warn().Err(err).Str("account", account).Msg("customer cache write failed")
	}
	return customer, nil
}
