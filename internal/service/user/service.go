package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/slotwise/scheduler-api/internal/model"
	"github.com/slotwise/scheduler-api/internal/repository"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// Service is the read-only user directory. Lookups are memoized; the
// provider flag changes rarely enough that a short TTL is acceptable.
type Service struct {
	repo  repository.UserRepository
	cache *gocache.Cache
}

func NewService(repo repository.UserRepository) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(cacheTTL, cacheCleanup),
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	key := id.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.User), nil
	}

	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, user, gocache.DefaultExpiration)
	return user, nil
}

func (s *Service) ListProviders(ctx context.Context) ([]*model.User, error) {
	return s.repo.ListProviders(ctx)
}
