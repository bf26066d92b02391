package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
	"talentwire/pkg/utils"

	"go.uber.org/zap"
)

// InsightMetrics records fan-out engine counters. Implemented by the
// prometheus collector; a nil-safe no-op is used in tests.
type InsightMetrics interface {
	RecordInsight(category domain.InsightCategory, severity domain.Severity)
	RecordFraudAlert(alertType domain.InsightType)
	RecordDroppedMessage(reason string)
	RecordPersistenceFailure(kind string)
}

type noopMetrics struct{}

func (noopMetrics) RecordInsight(domain.InsightCategory, domain.Severity) {}
func (noopMetrics) RecordFraudAlert(domain.InsightType)                  {}
func (noopMetrics) RecordDroppedMessage(string)                          {}
func (noopMetrics) RecordPersistenceFailure(string)                      {}

// resultMessage is the analysis-worker wire contract on the result channels.
type resultMessage struct {
	RoundID      string          `json:"roundId"`
	InsightType  string          `json:"insightType"`
	Category     string          `json:"category"`
	Severity     string          `json:"severity"`
	TimestampMs  int64           `json:"timestampMs"`
	Value        json.RawMessage `json:"value"`
	Explanation  string          `json:"explanation"`
	ModelVersion string          `json:"modelVersion"`
}

type insightService struct {
	insights ports.InsightRepository
	alerts   ports.FraudAlertRepository
	registry ports.RoomRegistry

	defaultConfidence float64
	metrics           InsightMetrics
	logger            *zap.SugaredLogger
}

func NewInsightService(
	insights ports.InsightRepository,
	alerts ports.FraudAlertRepository,
	registry ports.RoomRegistry,
	defaultConfidence float64,
	metrics InsightMetrics,
	logger *zap.SugaredLogger,
) ports.InsightService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &insightService{
		insights:          insights,
		alerts:            alerts,
		registry:          registry,
		defaultConfidence: defaultConfidence,
		metrics:           metrics,
		logger:            logger,
	}
}

// HandleResultMessage parses one raw channel message and runs it through the
// pipeline. A bad message is dropped and logged; it must never take down the
// subscriber loop.
func (s *insightService) HandleResultMessage(ctx context.Context, sourceCategory domain.InsightCategory, payload []byte) {
	var msg resultMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.metrics.RecordDroppedMessage("unmarshal")
		s.logger.Warnw("dropping malformed result message", "source", sourceCategory, "error", err)
		return
	}

	if msg.RoundID == "" || msg.InsightType == "" {
		s.metrics.RecordDroppedMessage("missing_fields")
		s.logger.Warnw("dropping result message with missing fields",
			"source", sourceCategory,
			"round_id", msg.RoundID,
			"insight_type", msg.InsightType,
		)
		return
	}

	severity := domain.Severity(strings.ToUpper(msg.Severity))
	if !severity.Valid() {
		s.metrics.RecordDroppedMessage("bad_severity")
		s.logger.Warnw("dropping result message with unknown severity",
			"source", sourceCategory,
			"severity", msg.Severity,
		)
		return
	}

	insightType := domain.InsightType(msg.InsightType)
	category, known := domain.CategoryOf(insightType)
	if !known {
		// New worker payloads flow through tagged with their source domain.
		category = sourceCategory
		if msg.Category != "" {
			category = domain.InsightCategory(strings.ToLower(msg.Category))
		}
	}

	insight := &domain.Insight{
		ID:           domain.InsightID(utils.GenerateInsightID()),
		RoundID:      domain.RoundID(msg.RoundID),
		Type:         insightType,
		Category:     category,
		Severity:     severity,
		TimestampMs:  msg.TimestampMs,
		Value:        domain.DecodeValue(insightType, msg.Value),
		Explanation:  msg.Explanation,
		ModelVersion: msg.ModelVersion,
		CreatedAt:    time.Now(),
	}

	s.Process(ctx, insight)
}

// Process persists the insight, promotes it to a fraud alert when it
// qualifies, and broadcasts to the owning room. Persistence failures are a
// tolerated degraded mode for delivery: the insight still goes out live,
// but an unpersisted insight is never promoted, so every stored alert
// references a stored insight.
func (s *insightService) Process(ctx context.Context, insight *domain.Insight) {
	persisted := true
	if err := s.insights.Insert(ctx, insight); err != nil {
		persisted = false
		s.metrics.RecordPersistenceFailure("insight")
		s.logger.Errorw("insight persistence failed, delivering live only",
			"round_id", insight.RoundID,
			"insight_type", insight.Type,
			"error", err,
		)
	}

	s.metrics.RecordInsight(insight.Category, insight.Severity)

	var alert *domain.FraudAlert
	if insight.PromotableToAlert() {
		if persisted {
			alert = s.promote(ctx, insight)
		} else {
			s.logger.Warnw("skipping fraud promotion for unpersisted insight",
				"round_id", insight.RoundID,
				"insight_type", insight.Type,
			)
		}
	}

	s.registry.Broadcast(ctx, insight.RoundID, domain.EventInsight, domain.NewInsightEvent(insight))

	if alert != nil {
		s.registry.Broadcast(ctx, insight.RoundID, domain.EventFraudAlert, domain.FraudAlertEvent{
			ID:          alert.ID,
			InsightID:   alert.InsightID,
			RoundID:     alert.RoundID,
			AlertType:   alert.AlertType,
			Severity:    alert.Severity,
			Confidence:  alert.Confidence,
			TimestampMs: insight.TimestampMs,
			Message:     insight.Explanation,
		})
	}
}

// promote creates the linked fraud alert for a qualifying insight.
func (s *insightService) promote(ctx context.Context, insight *domain.Insight) *domain.FraudAlert {
	confidence, ok := domain.ValueConfidence(insight.Value)
	if !ok {
		confidence = s.defaultConfidence
	}

	alert := &domain.FraudAlert{
		ID:         domain.FraudAlertID(utils.GenerateAlertID()),
		InsightID:  insight.ID,
		RoundID:    insight.RoundID,
		AlertType:  insight.Type,
		Severity:   insight.Severity,
		Confidence: confidence,
		Evidence:   domain.EncodeValue(insight.Value),
		CreatedAt:  time.Now(),
	}

	if err := s.alerts.Insert(ctx, alert); err != nil {
		s.metrics.RecordPersistenceFailure("fraud_alert")
		s.logger.Errorw("fraud alert persistence failed, broadcasting anyway",
			"round_id", insight.RoundID,
			"insight_id", insight.ID,
			"error", err,
		)
	}

	s.metrics.RecordFraudAlert(insight.Type)
	s.logger.Infow("fraud alert created",
		"round_id", insight.RoundID,
		"insight_id", insight.ID,
		"alert_type", alert.AlertType,
		"severity", alert.Severity,
		"confidence", alert.Confidence,
	)

	return alert
}

// AcknowledgeAlert mutates the persisted alert record only; future event
// delivery is unaffected.
func (s *insightService) AcknowledgeAlert(ctx context.Context, id domain.FraudAlertID, by domain.UserID, falsePositive bool) error {
	if err := s.alerts.Acknowledge(ctx, id, by, falsePositive); err != nil {
		return err
	}
	s.logger.Infow("fraud alert acknowledged",
		"alert_id", id,
		"acknowledged_by", by,
		"false_positive", falsePositive,
	)
	return nil
}
