package memory

import (
	"context"
	"sync"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
)

// RoundRepository is an in-memory round store for development and tests.
type RoundRepository struct {
	mu     sync.RWMutex
	rounds map[domain.RoundID]*domain.Round
}

func NewRoundRepository() *RoundRepository {
	return &RoundRepository{rounds: make(map[domain.RoundID]*domain.Round)}
}

var _ ports.RoundRepository = (*RoundRepository)(nil)

func (r *RoundRepository) GetByID(ctx context.Context, id domain.RoundID) (*domain.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	round, ok := r.rounds[id]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}
	copied := *round
	return &copied, nil
}

// Put seeds a round. Test helper; the relay never writes rounds.
func (r *RoundRepository) Put(round *domain.Round) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *round
	r.rounds[round.ID] = &copied
}
