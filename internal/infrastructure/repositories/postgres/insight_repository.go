package postgres

import (
	"context"
	"encoding/json"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InsightRepository persists insights. Insert-only: insights are immutable.
type InsightRepository struct {
	pool *pgxpool.Pool
}

func NewInsightRepository(pool *pgxpool.Pool) *InsightRepository {
	return &InsightRepository{pool: pool}
}

var _ ports.InsightRepository = (*InsightRepository)(nil)

func (r *InsightRepository) Insert(ctx context.Context, insight *domain.Insight) error {
	const query = `INSERT INTO insights (id, round_id, insight_type, category, severity, timestamp_ms, value, explanation, model_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		insight.ID,
		insight.RoundID,
		insight.Type,
		insight.Category,
		insight.Severity,
		insight.TimestampMs,
		domain.EncodeValue(insight.Value),
		insight.Explanation,
		insight.ModelVersion,
		insight.CreatedAt,
	)
	return err
}

// ListSince returns insights persisted for a round at or after the cutoff,
// oldest first. Serves the catch-up batch on join.
func (r *InsightRepository) ListSince(ctx context.Context, roundID domain.RoundID, since time.Time) ([]*domain.Insight, error) {
	const query = `SELECT id, round_id, insight_type, category, severity, timestamp_ms, value, explanation, model_version, created_at
		FROM insights WHERE round_id = $1 AND created_at >= $2 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, roundID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	insights := make([]*domain.Insight, 0)
	for rows.Next() {
		var (
			insight domain.Insight
			value   json.RawMessage
		)
		if err := rows.Scan(
			&insight.ID,
			&insight.RoundID,
			&insight.Type,
			&insight.Category,
			&insight.Severity,
			&insight.TimestampMs,
			&value,
			&insight.Explanation,
			&insight.ModelVersion,
			&insight.CreatedAt,
		); err != nil {
			return nil, err
		}
		insight.Value = domain.DecodeValue(insight.Type, value)
		insights = append(insights, &insight)
	}
	return insights, rows.Err()
}
