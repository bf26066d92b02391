package postgres

import (
	"context"
	"database/sql"
	"errors"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FraudAlertRepository persists promoted fraud alerts. Alerts are never
// deleted; acknowledgment is the only mutation.
type FraudAlertRepository struct {
	pool *pgxpool.Pool
}

func NewFraudAlertRepository(pool *pgxpool.Pool) *FraudAlertRepository {
	return &FraudAlertRepository{pool: pool}
}

var _ ports.FraudAlertRepository = (*FraudAlertRepository)(nil)

func (r *FraudAlertRepository) Insert(ctx context.Context, alert *domain.FraudAlert) error {
	const query = `INSERT INTO fraud_alerts (id, insight_id, round_id, alert_type, severity, confidence, evidence, acknowledged, false_positive, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, false, $8)`
	_, err := r.pool.Exec(ctx, query,
		alert.ID,
		alert.InsightID,
		alert.RoundID,
		alert.AlertType,
		alert.Severity,
		alert.Confidence,
		alert.Evidence,
		alert.CreatedAt,
	)
	return err
}

func (r *FraudAlertRepository) GetByID(ctx context.Context, id domain.FraudAlertID) (*domain.FraudAlert, error) {
	const query = `SELECT id, insight_id, round_id, alert_type, severity, confidence, evidence, acknowledged, false_positive, acknowledged_by, acknowledged_at, created_at
		FROM fraud_alerts WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanAlert(row)
}

// ListByRound returns all alerts for a round, newest first.
func (r *FraudAlertRepository) ListByRound(ctx context.Context, roundID domain.RoundID) ([]*domain.FraudAlert, error) {
	const query = `SELECT id, insight_id, round_id, alert_type, severity, confidence, evidence, acknowledged, false_positive, acknowledged_by, acknowledged_at, created_at
		FROM fraud_alerts WHERE round_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]*domain.FraudAlert, 0)
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// Acknowledge marks an alert acknowledged. Re-acknowledging updates the
// reviewer and false-positive flag.
func (r *FraudAlertRepository) Acknowledge(ctx context.Context, id domain.FraudAlertID, by domain.UserID, falsePositive bool) error {
	const query = `UPDATE fraud_alerts
		SET acknowledged = true,
			false_positive = $3,
			acknowledged_by = $2,
			acknowledged_at = NOW()
		WHERE id = $1`
	cmdTag, err := r.pool.Exec(ctx, query, id, by, falsePositive)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*domain.FraudAlert, error) {
	var (
		alert          domain.FraudAlert
		acknowledgedBy sql.NullString
		acknowledgedAt sql.NullTime
	)
	if err := row.Scan(
		&alert.ID,
		&alert.InsightID,
		&alert.RoundID,
		&alert.AlertType,
		&alert.Severity,
		&alert.Confidence,
		&alert.Evidence,
		&alert.Acknowledged,
		&alert.FalsePositive,
		&acknowledgedBy,
		&acknowledgedAt,
		&alert.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlertNotFound
		}
		return nil, err
	}
	if acknowledgedBy.Valid {
		alert.AcknowledgedBy = domain.UserID(acknowledgedBy.String)
	}
	if acknowledgedAt.Valid {
		value := acknowledgedAt.Time
		alert.AcknowledgedAt = &value
	}
	return &alert, nil
}
