package services

import (
	"context"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
	"talentwire/pkg/cache"
)

// cachedRoundRepository fronts the round store with a short-TTL cache so the
// access check on every join does not hammer the database. Ownership of a
// round does not change mid-interview, so staleness inside the TTL is safe.
//
// Only positive lookups are cached: a not-found round may be created a
// moment later.
type cachedRoundRepository struct {
	inner ports.RoundRepository
	cache *cache.Cache
}

func NewCachedRoundRepository(inner ports.RoundRepository, ttl time.Duration) ports.RoundRepository {
	return &cachedRoundRepository{
		inner: inner,
		cache: cache.NewCache(ttl),
	}
}

func (r *cachedRoundRepository) GetByID(ctx context.Context, id domain.RoundID) (*domain.Round, error) {
	if v, ok := r.cache.Get(string(id)); ok {
		return v.(*domain.Round), nil
	}

	round, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cache.Set(string(id), round)
	return round, nil
}
