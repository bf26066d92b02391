package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
)

// FraudAlertRepository is an in-memory alert store for development and tests.
type FraudAlertRepository struct {
	mu     sync.RWMutex
	alerts map[domain.FraudAlertID]*domain.FraudAlert
}

func NewFraudAlertRepository() *FraudAlertRepository {
	return &FraudAlertRepository{alerts: make(map[domain.FraudAlertID]*domain.FraudAlert)}
}

var _ ports.FraudAlertRepository = (*FraudAlertRepository)(nil)

func (r *FraudAlertRepository) Insert(ctx context.Context, alert *domain.FraudAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *alert
	r.alerts[alert.ID] = &copied
	return nil
}

func (r *FraudAlertRepository) GetByID(ctx context.Context, id domain.FraudAlertID) (*domain.FraudAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alert, ok := r.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	copied := *alert
	return &copied, nil
}

func (r *FraudAlertRepository) ListByRound(ctx context.Context, roundID domain.RoundID) ([]*domain.FraudAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.FraudAlert, 0)
	for _, alert := range r.alerts {
		if alert.RoundID == roundID {
			copied := *alert
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *FraudAlertRepository) Acknowledge(ctx context.Context, id domain.FraudAlertID, by domain.UserID, falsePositive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert, ok := r.alerts[id]
	if !ok {
		return domain.ErrAlertNotFound
	}

	now := time.Now()
	alert.Acknowledged = true
	alert.FalsePositive = falsePositive
	alert.AcknowledgedBy = by
	alert.AcknowledgedAt = &now
	return nil
}
