package http

import (
	"errors"
	"net/http"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
	"talentwire/internal/infrastructure/middleware"
	apperrors "talentwire/pkg/errors"

	"github.com/gin-gonic/gin"
)

// InsightHandler serves the read API for persisted insights and alerts.
// Live delivery happens over the websocket gateway; these endpoints exist
// for review tooling and post-round audit.
type InsightHandler struct {
	rounds   ports.RoundRepository
	insights ports.InsightRepository
	alerts   ports.FraudAlertRepository
	service  ports.InsightService
}

func NewInsightHandler(
	rounds ports.RoundRepository,
	insights ports.InsightRepository,
	alerts ports.FraudAlertRepository,
	service ports.InsightService,
) *InsightHandler {
	return &InsightHandler{
		rounds:   rounds,
		insights: insights,
		alerts:   alerts,
		service:  service,
	}
}

// ListInsights handles GET /api/v1/rounds/:id/insights?since=RFC3339.
// Same access predicate as joining the round's room.
func (h *InsightHandler) ListInsights(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	roundID := domain.RoundID(c.Param("id"))
	round, err := h.rounds.GetByID(c.Request.Context(), roundID)
	if err != nil {
		if errors.Is(err, domain.ErrRoundNotFound) {
			c.Error(apperrors.NewNotFoundError("round"))
			return
		}
		c.Error(err)
		return
	}
	if !round.AccessibleBy(identity) {
		c.Error(apperrors.NewForbiddenError("not authorized for this round"))
		return
	}

	since := time.Now().Add(-time.Hour)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.Error(apperrors.NewInvalidInputError("since must be RFC3339"))
			return
		}
		since = parsed
	}

	insights, err := h.insights.ListSince(c.Request.Context(), roundID, since)
	if err != nil {
		c.Error(err)
		return
	}

	events := make([]domain.InsightEvent, 0, len(insights))
	for _, insight := range insights {
		events = append(events, domain.NewInsightEvent(insight))
	}

	c.JSON(http.StatusOK, gin.H{
		"roundId":  roundID,
		"insights": events,
	})
}

// ListAlerts handles GET /api/v1/rounds/:id/alerts. Reviewer roles only:
// fraud alerts are never exposed to the candidate.
func (h *InsightHandler) ListAlerts(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}
	if identity.Role == domain.RoleCandidate {
		c.Error(apperrors.NewForbiddenError("not authorized for fraud alerts"))
		return
	}

	roundID := domain.RoundID(c.Param("id"))
	round, err := h.rounds.GetByID(c.Request.Context(), roundID)
	if err != nil {
		if errors.Is(err, domain.ErrRoundNotFound) {
			c.Error(apperrors.NewNotFoundError("round"))
			return
		}
		c.Error(err)
		return
	}
	if !round.AccessibleBy(identity) {
		c.Error(apperrors.NewForbiddenError("not authorized for this round"))
		return
	}

	alerts, err := h.alerts.ListByRound(c.Request.Context(), roundID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"roundId": roundID,
		"alerts":  toAlertResponses(alerts),
	})
}

type acknowledgeRequest struct {
	FalsePositive bool `json:"falsePositive"`
}

// AcknowledgeAlert handles POST /api/v1/alerts/:id/ack.
func (h *InsightHandler) AcknowledgeAlert(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}
	if identity.Role == domain.RoleCandidate {
		c.Error(apperrors.NewForbiddenError("not authorized for fraud alerts"))
		return
	}

	alertID := domain.FraudAlertID(c.Param("id"))
	alert, err := h.alerts.GetByID(c.Request.Context(), alertID)
	if err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			c.Error(apperrors.NewNotFoundError("alert"))
			return
		}
		c.Error(err)
		return
	}

	round, err := h.rounds.GetByID(c.Request.Context(), alert.RoundID)
	if err != nil {
		c.Error(err)
		return
	}
	if !round.AccessibleBy(identity) {
		c.Error(apperrors.NewForbiddenError("not authorized for this round"))
		return
	}

	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid acknowledge payload"))
		return
	}

	if err := h.service.AcknowledgeAlert(c.Request.Context(), alertID, identity.UserID, req.FalsePositive); err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			c.Error(apperrors.NewNotFoundError("alert"))
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
}

type alertResponse struct {
	ID             domain.FraudAlertID `json:"id"`
	InsightID      domain.InsightID    `json:"insightId"`
	RoundID        domain.RoundID      `json:"roundId"`
	AlertType      domain.InsightType  `json:"type"`
	Severity       domain.Severity     `json:"severity"`
	Confidence     float64             `json:"confidence"`
	Evidence       any                 `json:"evidence,omitempty"`
	Acknowledged   bool                `json:"acknowledged"`
	FalsePositive  bool                `json:"falsePositive"`
	AcknowledgedBy domain.UserID       `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time          `json:"acknowledgedAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

func toAlertResponses(alerts []*domain.FraudAlert) []alertResponse {
	out := make([]alertResponse, 0, len(alerts))
	for _, alert := range alerts {
		resp := alertResponse{
			ID:             alert.ID,
			InsightID:      alert.InsightID,
			RoundID:        alert.RoundID,
			AlertType:      alert.AlertType,
			Severity:       alert.Severity,
			Confidence:     alert.Confidence,
			Acknowledged:   alert.Acknowledged,
			FalsePositive:  alert.FalsePositive,
			AcknowledgedBy: alert.AcknowledgedBy,
			AcknowledgedAt: alert.AcknowledgedAt,
			CreatedAt:      alert.CreatedAt,
		}
		if len(alert.Evidence) > 0 {
			resp.Evidence = alert.Evidence
		}
		out = append(out, resp)
	}
	return out
}
