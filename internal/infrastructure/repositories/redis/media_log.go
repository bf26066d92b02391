package redis

import (
	"context"
	"fmt"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// MediaLog appends candidate media fragments to the per-round redis streams
// consumed by the analysis workers. Keys and field names are the worker
// contract: stream:{kind}:{roundId} with chunk / timestamp / submitter.
//
// Streams are capped approximately; the workers read near the head and the
// relay never reads back, so trimming old entries is free.
type MediaLog struct {
	client *redis.Client
	maxLen int64
}

func NewMediaLog(client *redis.Client, maxLen int64) *MediaLog {
	return &MediaLog{client: client, maxLen: maxLen}
}

func streamKey(kind domain.MediaKind, roundID domain.RoundID) string {
	return fmt.Sprintf("stream:%s:%s", kind, roundID)
}

func (l *MediaLog) Append(ctx context.Context, fragment *domain.MediaFragment) error {
	err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(fragment.Kind, fragment.RoundID),
		MaxLen: l.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"chunk":     fragment.Payload,
			"timestamp": fragment.TimestampMs,
			"submitter": string(fragment.SubmitterID),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append %s fragment for round %s: %w", fragment.Kind, fragment.RoundID, err)
	}
	return nil
}

var _ ports.MediaLog = (*MediaLog)(nil)
