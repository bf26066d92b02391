package services

import (
	"context"
	"encoding/json"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
	"talentwire/pkg/utils"
	"talentwire/pkg/validation"

	"go.uber.org/zap"
)

// ingestService appends candidate media to the per-round stream log and
// forwards fragments to the fraud detector. The stream log is the contract
// with the analysis workers; forwarding is a latency shortcut for fraud
// signals on top of it.
type ingestService struct {
	log      ports.MediaLog
	analysis ports.AnalysisGateway

	// relaxed admits fragments from any room member, not just the
	// candidate. Development and load-test deployments only.
	relaxed bool
	logger  *zap.SugaredLogger
}

func NewIngestService(log ports.MediaLog, analysis ports.AnalysisGateway, relaxed bool, logger *zap.SugaredLogger) ports.IngestService {
	return &ingestService{
		log:      log,
		analysis: analysis,
		relaxed:  relaxed,
		logger:   logger,
	}
}

// Submit validates and appends one fragment. Downstream failures (stream
// append, fraud forward) are logged and swallowed: the submitting connection
// must never be disturbed by ingestion trouble.
func (s *ingestService) Submit(ctx context.Context, submitter domain.Identity, fragment *domain.MediaFragment) error {
	if fragment == nil || !fragment.Kind.Valid() || fragment.Payload == "" {
		return domain.ErrInvalidPayload
	}
	if err := validation.ValidateRoundID(string(fragment.RoundID)); err != nil {
		return domain.ErrInvalidPayload
	}
	if !s.relaxed && submitter.Role != domain.RoleCandidate {
		return domain.ErrAccessDenied
	}

	fragment.SubmitterID = submitter.UserID

	if err := s.log.Append(ctx, fragment); err != nil {
		s.logger.Errorw("stream append failed, fragment lost",
			"round_id", fragment.RoundID,
			"kind", fragment.Kind,
			"error", err,
		)
	}

	s.forward(ctx, fragment)
	return nil
}

// forward hands the fragment to the fraud detector's ingest endpoint. The
// gateway's circuit breaker handles a down detector; here we only log.
func (s *ingestService) forward(ctx context.Context, fragment *domain.MediaFragment) {
	var err error
	switch fragment.Kind {
	case domain.MediaVideo:
		err = s.analysis.SubmitFrame(ctx, fragment.RoundID, fragment.Payload, fragment.TimestampMs)
	case domain.MediaAudio:
		err = s.analysis.SubmitAudio(ctx, fragment.RoundID, fragment.Payload, fragment.TimestampMs)
	}
	if err != nil {
		s.logger.Debugw("analysis forward failed",
			"round_id", fragment.RoundID,
			"kind", fragment.Kind,
			"error", err,
		)
	}
}

// TabSwitchInsight synthesizes the relay-local fraud insight for a reported
// browser visibility change. It enters the pipeline like any worker result.
func TabSwitchInsight(roundID domain.RoundID, timestampMs int64) *domain.Insight {
	return &domain.Insight{
		ID:          domain.InsightID(utils.GenerateInsightID()),
		RoundID:     roundID,
		Type:        domain.InsightTabSwitch,
		Category:    domain.CategoryFraud,
		Severity:    domain.SeverityMedium,
		TimestampMs: timestampMs,
		Value: domain.FraudEvidenceValue{
			Confidence: 1.0,
			Details:    json.RawMessage(`{"reason":"visibility_change"}`),
		},
		Explanation:  "Candidate switched away from the interview tab",
		ModelVersion: "relay-local",
		CreatedAt:    time.Now(),
	}
}
