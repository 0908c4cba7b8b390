package services

import (
	"context"
	"fmt"
	"time"

	"github.com/epeers/mftracker/internal/backend"
	"github.com/epeers/mftracker/internal/cache"
	"github.com/epeers/mftracker/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// FundService keeps the last fetched fund list per caller token.
// Concurrent refreshes for the same token share one backend call.
type FundService struct {
	client *backend.Client
	cache  *cache.MemoryCache[string, []models.Fund]
	group  singleflight.Group
}

// NewFundService creates a new FundService
func NewFundService(client *backend.Client, ttl time.Duration) *FundService {
	return &FundService{
		client: client,
		cache:  cache.NewMemoryCache[string, []models.Fund](ttl),
	}
}

// ListFunds returns the cached fund list, fetching it when missing or stale.
func (s *FundService) ListFunds(ctx context.Context, token string) ([]models.Fund, error) {
	if funds, ok := s.cache.Get(token); ok {
		return funds, nil
	}
	return s.RefreshFunds(ctx, token)
}

// RefreshFunds fetches the fund list from the backend and replaces the cached copy.
func (s *FundService) RefreshFunds(ctx context.Context, token string) ([]models.Fund, error) {
	defer TrackTime("RefreshFunds", time.Now())

	v, err, shared := s.group.Do(token, func() (interface{}, error) {
		funds, err := s.client.WithToken(token).ListFunds(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(token, funds)
		return funds, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh fund list: %w", err)
	}
	if shared {
		log.Debug("fund list refresh coalesced with an in-flight call")
	}
	return v.([]models.Fund), nil
}

// EvictExpired drops stale fund lists.
func (s *FundService) EvictExpired() int {
	return len(s.cache.EvictExpired())
}

// ForToken binds the service to one caller for use by a workflow session.
func (s *FundService) ForToken(token string) *TokenFunds {
	return &TokenFunds{svc: s, token: token}
}

// TokenFunds refreshes the fund list of a single caller.
type TokenFunds struct {
	svc   *FundService
	token string
}

func (f *TokenFunds) RefreshFunds(ctx context.Context) error {
	_, err := f.svc.RefreshFunds(ctx, f.token)
	return err
}
