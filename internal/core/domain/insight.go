package domain

import "time"

type InsightID string

// Severity levels match the analysis-worker wire contract (uppercase strings).
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is a known severity level.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// InsightCategory groups insight types by analysis domain.
type InsightCategory string

const (
	CategorySpeech InsightCategory = "speech"
	CategoryVideo  InsightCategory = "video"
	CategoryFraud  InsightCategory = "fraud"
	CategoryNLP    InsightCategory = "nlp"
)

type InsightType string

const (
	// Speech analysis
	InsightSpeechConfidence InsightType = "SPEECH_CONFIDENCE"
	InsightHesitation       InsightType = "HESITATION"
	InsightSpeechPace       InsightType = "SPEECH_PACE"

	// Video analysis
	InsightEyeContact   InsightType = "EYE_CONTACT"
	InsightHeadMovement InsightType = "HEAD_MOVEMENT"

	// Fraud detection
	InsightMultipleFaces   InsightType = "MULTIPLE_FACES"
	InsightFaceSwitch      InsightType = "FACE_SWITCH"
	InsightBackgroundVoice InsightType = "BACKGROUND_VOICE"
	InsightTabSwitch       InsightType = "TAB_SWITCH"

	// NLP engine
	InsightResumeContradiction InsightType = "RESUME_CONTRADICTION"
	InsightSkillMismatch       InsightType = "SKILL_MISMATCH"
	InsightLowClarity          InsightType = "LOW_CLARITY"
)

var typeCategories = map[InsightType]InsightCategory{
	InsightSpeechConfidence:    CategorySpeech,
	InsightHesitation:          CategorySpeech,
	InsightSpeechPace:          CategorySpeech,
	InsightEyeContact:          CategoryVideo,
	InsightHeadMovement:        CategoryVideo,
	InsightMultipleFaces:       CategoryFraud,
	InsightFaceSwitch:          CategoryFraud,
	InsightBackgroundVoice:     CategoryFraud,
	InsightTabSwitch:           CategoryFraud,
	InsightResumeContradiction: CategoryNLP,
	InsightSkillMismatch:       CategoryNLP,
	InsightLowClarity:          CategoryNLP,
}

// CategoryOf returns the category for a known insight type. Unknown types
// return false; callers fall back to the source channel's domain.
func CategoryOf(t InsightType) (InsightCategory, bool) {
	c, ok := typeCategories[t]
	return c, ok
}

// Insight is a single machine-generated signal about a live round.
// Immutable once created; persisted for audit and replay.
type Insight struct {
	ID           InsightID
	RoundID      RoundID
	Type         InsightType
	Category     InsightCategory
	Severity     Severity
	TimestampMs  int64 // milliseconds relative to interview start
	Value        InsightValue
	Explanation  string
	ModelVersion string
	CreatedAt    time.Time
}

// PromotableToAlert reports whether this insight qualifies for fraud-alert
// promotion: fraud category with high or critical severity.
func (i *Insight) PromotableToAlert() bool {
	if i.Category != CategoryFraud {
		return false
	}
	return i.Severity == SeverityHigh || i.Severity == SeverityCritical
}
