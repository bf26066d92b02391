package domain

import (
	"encoding/json"
	"time"
)

type FraudAlertID string

// FraudAlert is a promoted fraud-category insight that requires human
// acknowledgment. Every alert references exactly one persisted insight.
// The relay only creates alerts; acknowledgment mutates the persisted
// record and nothing else.
type FraudAlert struct {
	ID         FraudAlertID
	InsightID  InsightID
	RoundID    RoundID
	AlertType  InsightType
	Severity   Severity
	Confidence float64
	Evidence   json.RawMessage

	Acknowledged   bool
	FalsePositive  bool
	AcknowledgedBy UserID
	AcknowledgedAt *time.Time

	CreatedAt time.Time
}
