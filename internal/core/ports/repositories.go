package ports

import (
	"context"
	"time"

	"talentwire/internal/core/domain"
)

// RoundRepository reads round ownership for access control. The round
// records themselves are owned by the interview CRUD service.
type RoundRepository interface {
	GetByID(ctx context.Context, id domain.RoundID) (*domain.Round, error)
}

// InsightRepository persists insights (insert-only) and serves the
// recent-insight catch-up query for joining connections.
type InsightRepository interface {
	Insert(ctx context.Context, insight *domain.Insight) error
	ListSince(ctx context.Context, roundID domain.RoundID, since time.Time) ([]*domain.Insight, error)
}

// FraudAlertRepository persists promoted fraud alerts. Alerts are never
// deleted; acknowledgment is the only mutation.
type FraudAlertRepository interface {
	Insert(ctx context.Context, alert *domain.FraudAlert) error
	GetByID(ctx context.Context, id domain.FraudAlertID) (*domain.FraudAlert, error)
	ListByRound(ctx context.Context, roundID domain.RoundID) ([]*domain.FraudAlert, error)
	Acknowledge(ctx context.Context, id domain.FraudAlertID, by domain.UserID, falsePositive bool) error
}

// MediaLog is the append-only per-round stream log consumed by the
// external analysis workers. The relay never reads it back.
type MediaLog interface {
	Append(ctx context.Context, fragment *domain.MediaFragment) error
}
