package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"talentwire/internal/core/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// clusterEnvelope wraps a room event for transit between relay instances.
// InstanceID lets a receiver skip its own publications: local members were
// already served directly.
type clusterEnvelope struct {
	InstanceID string          `json:"instance_id"`
	RoundID    domain.RoundID  `json:"round_id"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
}

func roomChannel(roundID domain.RoundID) string {
	return fmt.Sprintf("room:%s:events", roundID)
}

// ClusterBus fans room events out across relay instances over redis pub/sub.
// One channel per room; subscriptions track the rooms that have local
// members on this instance. Delivery is best-effort.
type ClusterBus struct {
	client     *redis.Client
	instanceID string
	pubsub     *redis.PubSub
	onEvent    func(roundID domain.RoundID, data []byte)
	logger     *zap.SugaredLogger
}

// NewClusterBus opens the shared pub/sub connection and starts the receive
// loop. onEvent runs for every event published by another instance; it must
// not block.
func NewClusterBus(
	ctx context.Context,
	client *redis.Client,
	instanceID string,
	onEvent func(roundID domain.RoundID, data []byte),
	logger *zap.SugaredLogger,
) *ClusterBus {
	bus := &ClusterBus{
		client:     client,
		instanceID: instanceID,
		onEvent:    onEvent,
		logger:     logger,
	}

	// A PubSub with no channels yet; rooms are added as local members appear.
	bus.pubsub = client.Subscribe(ctx)
	go bus.receiveLoop(ctx)

	return bus
}

func (b *ClusterBus) PublishRoom(ctx context.Context, roundID domain.RoundID, data []byte) error {
	envelope := clusterEnvelope{
		InstanceID: b.instanceID,
		RoundID:    roundID,
		Timestamp:  time.Now(),
		Data:       data,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal cluster envelope: %w", err)
	}

	if err := b.client.Publish(ctx, roomChannel(roundID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish room event: %w", err)
	}

	return nil
}

func (b *ClusterBus) SubscribeRoom(roundID domain.RoundID) error {
	return b.pubsub.Subscribe(context.Background(), roomChannel(roundID))
}

func (b *ClusterBus) UnsubscribeRoom(roundID domain.RoundID) error {
	return b.pubsub.Unsubscribe(context.Background(), roomChannel(roundID))
}

func (b *ClusterBus) receiveLoop(ctx context.Context) {
	ch := b.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var envelope clusterEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				b.logger.Warnw("failed to unmarshal cluster envelope",
					"channel", msg.Channel,
					"error", err,
				)
				continue
			}

			// Skip events from this instance
			if envelope.InstanceID == b.instanceID {
				continue
			}

			b.onEvent(envelope.RoundID, envelope.Data)
		}
	}
}

// Close closes the shared pub/sub connection.
func (b *ClusterBus) Close() error {
	return b.pubsub.Close()
}
