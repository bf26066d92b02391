package distributed

import (
	"context"
	"fmt"
	"strings"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
	"talentwire/pkg/retry"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// resultChannels maps each analysis-worker result channel to its domain.
// The channel names are the contract with the workers.
var resultChannels = map[string]domain.InsightCategory{
	"service:speech:results": domain.CategorySpeech,
	"service:video:results":  domain.CategoryVideo,
	"service:fraud:results":  domain.CategoryFraud,
	"service:nlp:results":    domain.CategoryNLP,
}

// ResultsSubscriber listens on the analysis-worker result channels and feeds
// each message into the insight pipeline. It reconnects with backoff for as
// long as the context lives: a broker outage pauses delivery, never kills
// the relay.
type ResultsSubscriber struct {
	client   *redis.Client
	insights ports.InsightService
	logger   *zap.SugaredLogger
}

func NewResultsSubscriber(client *redis.Client, insights ports.InsightService, logger *zap.SugaredLogger) *ResultsSubscriber {
	return &ResultsSubscriber{
		client:   client,
		insights: insights,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *ResultsSubscriber) Run(ctx context.Context) error {
	cfg := retry.DefaultConfig()

	return retry.Forever(ctx, cfg, func() error {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Errorw("result subscription lost, reconnecting", "error", err)
			return err
		}
		return nil
	})
}

func (s *ResultsSubscriber) consume(ctx context.Context) error {
	channels := make([]string, 0, len(resultChannels))
	for channel := range resultChannels {
		channels = append(channels, channel)
	}

	pubsub := s.client.Subscribe(ctx, channels...)
	defer pubsub.Close()

	// Fail fast if the broker is unreachable instead of waiting on an
	// empty channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("result channel subscribe failed: %w", err)
	}

	s.logger.Infow("subscribed to analysis result channels", "channels", strings.Join(channels, ","))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("result channel closed")
			}
			category, known := resultChannels[msg.Channel]
			if !known {
				continue
			}
			s.insights.HandleResultMessage(ctx, category, []byte(msg.Payload))
		}
	}
}
