package ports

import (
	"context"

	"talentwire/internal/core/domain"
)

// Client is one live authenticated connection as seen by the core services.
// Implemented by the websocket gateway.
type Client interface {
	ID() string
	Identity() domain.Identity
	// Send marshals an event envelope and queues it for delivery.
	Send(eventType string, payload any) error
	// SendRaw queues an already-marshaled envelope. Used by the fan-out
	// path so a broadcast is marshaled once per room, not once per member.
	SendRaw(data []byte) error
}

// RoomRegistry tracks room membership and fans events out to members.
// Join and Leave are serialized by the implementation so each membership
// mutation is atomic (a connection is in at most one room at any instant).
type RoomRegistry interface {
	// Join registers the client into the round's room, implicitly leaving
	// any previous room first.
	Join(client Client, roundID domain.RoundID)
	// Leave removes the client from its current room. Idempotent.
	Leave(client Client)
	// Broadcast delivers an event to every member of the room on this
	// instance and publishes it to the cluster bus for the others.
	Broadcast(ctx context.Context, roundID domain.RoundID, eventType string, payload any)
	// LocalMembers reports how many members of the room are on this instance.
	LocalMembers(roundID domain.RoundID) int
}

// ClusterBus propagates room broadcasts between relay instances through a
// shared broker. Delivery is best-effort; persistence is the durability
// mechanism, not the bus.
type ClusterBus interface {
	PublishRoom(ctx context.Context, roundID domain.RoundID, data []byte) error
	SubscribeRoom(roundID domain.RoundID) error
	UnsubscribeRoom(roundID domain.RoundID) error
}

// RoomService enforces the access predicate and runs the join sequence.
type RoomService interface {
	Join(ctx context.Context, client Client, roundID domain.RoundID) error
	Leave(ctx context.Context, client Client)
}

// InsightService is the fan-out engine: it turns raw analysis-result
// messages into persisted insights, promotes qualifying fraud signals to
// alerts, and broadcasts both to the owning room.
type InsightService interface {
	// HandleResultMessage processes one raw message from an analysis-result
	// channel. Malformed messages are dropped and logged, never returned as
	// errors that could kill the subscriber loop.
	HandleResultMessage(ctx context.Context, sourceCategory domain.InsightCategory, payload []byte)
	// Process runs one already-parsed insight through persist, promote and
	// broadcast. Used for relay-synthesized insights such as tab switches.
	Process(ctx context.Context, insight *domain.Insight)
	// AcknowledgeAlert marks a fraud alert acknowledged, optionally flagging
	// it false-positive.
	AcknowledgeAlert(ctx context.Context, id domain.FraudAlertID, by domain.UserID, falsePositive bool) error
}

// IngestService appends candidate media fragments to the stream log and
// forwards frames to the fraud detector. Fire-and-forget: errors are
// logged, never surfaced to the submitting connection.
type IngestService interface {
	Submit(ctx context.Context, submitter domain.Identity, fragment *domain.MediaFragment) error
}

// AnalysisGateway makes breaker-guarded calls to the external analysis
// services.
type AnalysisGateway interface {
	SubmitFrame(ctx context.Context, roundID domain.RoundID, frameB64 string, timestampMs int64) error
	SubmitAudio(ctx context.Context, roundID domain.RoundID, audioB64 string, timestampMs int64) error
	ProbeHealth(ctx context.Context, dependency string) error
	Dependencies() []string
}
