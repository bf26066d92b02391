package domain

import "encoding/json"

// Outbound event types delivered to connected clients.
const (
	EventJoinedRoom         = "joined_room"
	EventAuthorizationError = "authorization_error"
	EventInsight            = "insight"
	EventFraudAlert         = "fraud_alert"
	EventCatchUpBatch       = "catch_up_batch"
)

// JoinedRoomEvent acknowledges a successful join.
type JoinedRoomEvent struct {
	RoundID RoundID `json:"roundId"`
}

// AuthorizationErrorEvent reports a denied join to the requesting connection.
type AuthorizationErrorEvent struct {
	Message string `json:"message"`
}

// InsightEvent is the generic insight broadcast to a round's room.
type InsightEvent struct {
	ID           InsightID       `json:"id"`
	RoundID      RoundID         `json:"roundId"`
	InsightType  InsightType     `json:"insightType"`
	Category     InsightCategory `json:"category"`
	Severity     Severity        `json:"severity"`
	TimestampMs  int64           `json:"timestampMs"`
	Value        json.RawMessage `json:"value,omitempty"`
	Explanation  string          `json:"explanation,omitempty"`
	ModelVersion string          `json:"modelVersion,omitempty"`
}

// NewInsightEvent builds the wire event for an insight.
func NewInsightEvent(in *Insight) InsightEvent {
	return InsightEvent{
		ID:           in.ID,
		RoundID:      in.RoundID,
		InsightType:  in.Type,
		Category:     in.Category,
		Severity:     in.Severity,
		TimestampMs:  in.TimestampMs,
		Value:        EncodeValue(in.Value),
		Explanation:  in.Explanation,
		ModelVersion: in.ModelVersion,
	}
}

// FraudAlertEvent is the high-priority alert broadcast alongside the
// generic insight event when an insight is promoted.
type FraudAlertEvent struct {
	ID          FraudAlertID `json:"id"`
	InsightID   InsightID    `json:"insightId"`
	RoundID     RoundID      `json:"roundId"`
	AlertType   InsightType  `json:"type"`
	Severity    Severity     `json:"severity"`
	Confidence  float64      `json:"confidence"`
	TimestampMs int64        `json:"timestampMs"`
	Message     string       `json:"message,omitempty"`
}

// CatchUpBatchEvent delivers recently persisted insights to a connection
// that just joined. Sent to that connection only.
type CatchUpBatchEvent struct {
	RoundID  RoundID        `json:"roundId"`
	Insights []InsightEvent `json:"insights"`
}
