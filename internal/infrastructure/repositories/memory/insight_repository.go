package memory

import (
	"context"
	"sync"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
)

// InsightRepository is an in-memory insight store for development and tests.
type InsightRepository struct {
	mu       sync.RWMutex
	insights map[domain.RoundID][]*domain.Insight
}

func NewInsightRepository() *InsightRepository {
	return &InsightRepository{insights: make(map[domain.RoundID][]*domain.Insight)}
}

var _ ports.InsightRepository = (*InsightRepository)(nil)

func (r *InsightRepository) Insert(ctx context.Context, insight *domain.Insight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *insight
	r.insights[insight.RoundID] = append(r.insights[insight.RoundID], &copied)
	return nil
}

func (r *InsightRepository) ListSince(ctx context.Context, roundID domain.RoundID, since time.Time) ([]*domain.Insight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Insight, 0)
	for _, insight := range r.insights[roundID] {
		if !insight.CreatedAt.Before(since) {
			copied := *insight
			out = append(out, &copied)
		}
	}
	return out, nil
}
