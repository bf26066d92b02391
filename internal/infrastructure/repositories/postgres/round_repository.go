package postgres

import (
	"context"
	"errors"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoundRepository reads interview rounds for access control. Round records
// are written by the scheduling service; the relay only reads them.
type RoundRepository struct {
	pool *pgxpool.Pool
}

func NewRoundRepository(pool *pgxpool.Pool) *RoundRepository {
	return &RoundRepository{pool: pool}
}

var _ ports.RoundRepository = (*RoundRepository)(nil)

func (r *RoundRepository) GetByID(ctx context.Context, id domain.RoundID) (*domain.Round, error) {
	const query = `SELECT id, candidate_id, interviewer_id, scheduled_at, started_at
		FROM interview_rounds WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)

	var round domain.Round
	if err := row.Scan(&round.ID, &round.CandidateID, &round.InterviewerID, &round.ScheduledAt, &round.StartedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoundNotFound
		}
		return nil, err
	}
	return &round, nil
}
