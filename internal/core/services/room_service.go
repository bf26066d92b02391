package services

import (
	"context"
	"errors"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"

	"go.uber.org/zap"
)

// roomService enforces the access predicate and runs the join sequence.
// Membership mutations themselves are serialized inside the RoomRegistry.
type roomService struct {
	rounds   ports.RoundRepository
	insights ports.InsightRepository
	registry ports.RoomRegistry

	catchUpWindow time.Duration
	logger        *zap.SugaredLogger
}

func NewRoomService(
	rounds ports.RoundRepository,
	insights ports.InsightRepository,
	registry ports.RoomRegistry,
	catchUpWindow time.Duration,
	logger *zap.SugaredLogger,
) ports.RoomService {
	return &roomService{
		rounds:        rounds,
		insights:      insights,
		registry:      registry,
		catchUpWindow: catchUpWindow,
		logger:        logger,
	}
}

// Join resolves access for the round and, if granted, moves the client into
// the round's room and delivers the recent-insight catch-up batch.
//
// A round that does not exist and an ownership lookup that fails are both
// treated as denied: access control must fail closed.
func (s *roomService) Join(ctx context.Context, client ports.Client, roundID domain.RoundID) error {
	identity := client.Identity()

	round, err := s.rounds.GetByID(ctx, roundID)
	if err != nil {
		if !errors.Is(err, domain.ErrRoundNotFound) {
			s.logger.Errorw("round ownership lookup failed, denying join",
				"round_id", roundID,
				"user_id", identity.UserID,
				"error", err,
			)
		}
		s.denyJoin(client, roundID)
		return domain.ErrAccessDenied
	}

	if !round.AccessibleBy(identity) {
		s.logger.Infow("join denied",
			"round_id", roundID,
			"user_id", identity.UserID,
			"role", identity.Role,
		)
		s.denyJoin(client, roundID)
		return domain.ErrAccessDenied
	}

	// Registry handles the implicit leave of any previous room and the
	// cluster-bus subscription for the new one.
	s.registry.Join(client, roundID)

	if err := client.Send(domain.EventJoinedRoom, domain.JoinedRoomEvent{RoundID: roundID}); err != nil {
		s.logger.Infow("failed to ack join", "round_id", roundID, "error", err)
	}

	s.logger.Infow("client joined room",
		"round_id", roundID,
		"user_id", identity.UserID,
		"role", identity.Role,
	)

	s.sendCatchUp(ctx, client, roundID)
	return nil
}

// Leave is idempotent; a no-op when the client is not in a room.
func (s *roomService) Leave(ctx context.Context, client ports.Client) {
	s.registry.Leave(client)
}

func (s *roomService) denyJoin(client ports.Client, roundID domain.RoundID) {
	err := client.Send(domain.EventAuthorizationError, domain.AuthorizationErrorEvent{
		Message: "not authorized for round " + string(roundID),
	})
	if err != nil {
		s.logger.Debugw("failed to deliver authorization error", "round_id", roundID, "error", err)
	}
}

// sendCatchUp delivers insights persisted within the catch-up window to the
// newly joined connection only. Failure here degrades to live-only delivery.
func (s *roomService) sendCatchUp(ctx context.Context, client ports.Client, roundID domain.RoundID) {
	since := time.Now().Add(-s.catchUpWindow)
	recent, err := s.insights.ListSince(ctx, roundID, since)
	if err != nil {
		s.logger.Warnw("catch-up query failed", "round_id", roundID, "error", err)
		return
	}

	events := make([]domain.InsightEvent, 0, len(recent))
	for _, in := range recent {
		events = append(events, domain.NewInsightEvent(in))
	}

	batch := domain.CatchUpBatchEvent{RoundID: roundID, Insights: events}
	if err := client.Send(domain.EventCatchUpBatch, batch); err != nil {
		s.logger.Debugw("failed to deliver catch-up batch", "round_id", roundID, "error", err)
	}
}
