package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the relay schema. Statements are idempotent so every
// instance can run them at startup without coordination.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS interview_rounds (
			id TEXT PRIMARY KEY,
			candidate_id TEXT NOT NULL,
			interviewer_id TEXT NOT NULL,
			scheduled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			started_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS insights (
			id TEXT PRIMARY KEY,
			round_id TEXT NOT NULL,
			insight_type TEXT NOT NULL,
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			timestamp_ms BIGINT NOT NULL,
			value JSONB,
			explanation TEXT,
			model_version TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_insights_round_created ON insights(round_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS fraud_alerts (
			id TEXT PRIMARY KEY,
			insight_id TEXT NOT NULL,
			round_id TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			evidence JSONB,
			acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
			false_positive BOOLEAN NOT NULL DEFAULT FALSE,
			acknowledged_by TEXT,
			acknowledged_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fraud_alerts_round_created ON fraud_alerts(round_id, created_at)`,
	}

	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
