package domain

import "encoding/json"

// InsightValue is the typed payload of an insight. Each known insight type
// has its own variant; payloads from newer analysis workers that this relay
// does not know about decode to OpaqueValue so they still flow through.
type InsightValue interface {
	insightValue()
}

// SpeechConfidenceValue scores how confident the candidate sounds.
type SpeechConfidenceValue struct {
	Score      float64  `json:"score"`
	Indicators []string `json:"indicators,omitempty"`
	Transcript string   `json:"transcript,omitempty"`
}

func (SpeechConfidenceValue) insightValue() {}

// HesitationValue describes a single detected hesitation.
type HesitationValue struct {
	Kind       string `json:"type"`
	DurationMs int64  `json:"duration_ms"`
	Word       string `json:"word,omitempty"`
}

func (HesitationValue) insightValue() {}

// GazeValue covers eye-contact and head-movement signals.
type GazeValue struct {
	OffScreenRatio float64 `json:"off_screen_ratio,omitempty"`
	MovementScore  float64 `json:"movement_score,omitempty"`
}

func (GazeValue) insightValue() {}

// FraudEvidenceValue carries the detector's confidence and evidence.
type FraudEvidenceValue struct {
	Confidence float64         `json:"confidence"`
	FrameCount int             `json:"frame_count,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

func (FraudEvidenceValue) insightValue() {}

// ContradictionValue links a claim against a resume statement.
type ContradictionValue struct {
	Claim      string  `json:"claim"`
	Statement  string  `json:"statement,omitempty"`
	Confidence float64 `json:"confidence"`
}

func (ContradictionValue) insightValue() {}

// OpaqueValue preserves an unrecognized payload verbatim.
type OpaqueValue struct {
	Raw json.RawMessage
}

func (OpaqueValue) insightValue() {}

func (v OpaqueValue) MarshalJSON() ([]byte, error) {
	if len(v.Raw) == 0 {
		return []byte("null"), nil
	}
	return v.Raw, nil
}

// DecodeValue decodes a raw value payload into the variant for the given
// insight type. Unknown types, empty payloads, and payloads that do not
// match the expected shape all fall back to OpaqueValue: forward
// compatibility wins over strictness here.
func DecodeValue(t InsightType, raw json.RawMessage) InsightValue {
	if len(raw) == 0 {
		return OpaqueValue{}
	}

	switch t {
	case InsightSpeechConfidence:
		var v SpeechConfidenceValue
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	case InsightHesitation:
		var v HesitationValue
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	case InsightEyeContact, InsightHeadMovement:
		var v GazeValue
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	case InsightMultipleFaces, InsightFaceSwitch, InsightBackgroundVoice, InsightTabSwitch:
		var v FraudEvidenceValue
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	case InsightResumeContradiction, InsightSkillMismatch:
		var v ContradictionValue
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}

	return OpaqueValue{Raw: raw}
}

// EncodeValue marshals an insight value for persistence and delivery.
func EncodeValue(v InsightValue) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// ValueConfidence extracts a confidence score from the value payload when
// one is present. Used for fraud-alert promotion.
func ValueConfidence(v InsightValue) (float64, bool) {
	switch val := v.(type) {
	case FraudEvidenceValue:
		return val.Confidence, true
	case ContradictionValue:
		return val.Confidence, true
	case OpaqueValue:
		var probe struct {
			Confidence *float64 `json:"confidence"`
		}
		if err := json.Unmarshal(val.Raw, &probe); err == nil && probe.Confidence != nil {
			return *probe.Confidence, true
		}
	}
	return 0, false
}
