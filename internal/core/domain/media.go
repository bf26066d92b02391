package domain

// MediaKind distinguishes the per-round stream logs.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Valid reports whether k is a known media kind.
func (k MediaKind) Valid() bool {
	return k == MediaAudio || k == MediaVideo
}

// MediaFragment is one opaque audio chunk or video frame submitted by a
// candidate connection. Write-once: appended to the round's stream log and
// never read back by the relay.
type MediaFragment struct {
	RoundID     RoundID
	Kind        MediaKind
	Payload     string // base64-encoded media bytes, passed through as-is
	TimestampMs int64
	SubmitterID UserID
}
