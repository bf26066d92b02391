package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
	"talentwire/pkg/circuitbreaker"

	"go.uber.org/zap"
)

const internalKeyHeader = "X-Internal-Api-Key"

// defaultSampleRate matches the capture rate the workers assume for
// PCM audio chunks.
const defaultSampleRate = 16000

// Gateway makes breaker-guarded HTTP calls to the analysis services. Each
// dependency has its own breaker: a dead fraud detector must not block
// speech analysis.
type Gateway struct {
	services    map[string]string // dependency name -> base URL
	internalKey string
	httpClient  *http.Client
	breakers    *circuitbreaker.Registry
	logger      *zap.SugaredLogger
}

func NewGateway(
	services map[string]string,
	internalKey string,
	callTimeout time.Duration,
	breakers *circuitbreaker.Registry,
	logger *zap.SugaredLogger,
) *Gateway {
	return &Gateway{
		services:    services,
		internalKey: internalKey,
		httpClient:  &http.Client{Timeout: callTimeout},
		breakers:    breakers,
		logger:      logger,
	}
}

// Breakers exposes the registry for the health endpoint and collector.
func (g *Gateway) Breakers() *circuitbreaker.Registry {
	return g.breakers
}

// The analysis workers take snake_case JSON.
type framePayload struct {
	RoundID     domain.RoundID `json:"round_id"`
	FrameBase64 string         `json:"frame_base64"`
	TimestampMs int64          `json:"timestamp_ms"`
}

type audioPayload struct {
	RoundID     domain.RoundID `json:"round_id"`
	AudioBase64 string         `json:"audio_base64"`
	TimestampMs int64          `json:"timestamp_ms"`
	SampleRate  int            `json:"sample_rate"`
}

// SubmitFrame forwards a video frame to the fraud detector's analysis endpoint.
func (g *Gateway) SubmitFrame(ctx context.Context, roundID domain.RoundID, frameB64 string, timestampMs int64) error {
	return g.post(ctx, "fraud", "/analyze/video", framePayload{
		RoundID:     roundID,
		FrameBase64: frameB64,
		TimestampMs: timestampMs,
	})
}

// SubmitAudio forwards an audio chunk for background-voice detection.
func (g *Gateway) SubmitAudio(ctx context.Context, roundID domain.RoundID, audioB64 string, timestampMs int64) error {
	return g.post(ctx, "fraud", "/analyze/audio", audioPayload{
		RoundID:     roundID,
		AudioBase64: audioB64,
		TimestampMs: timestampMs,
		SampleRate:  defaultSampleRate,
	})
}

// ProbeHealth checks one dependency through its breaker, so a flapping
// service trips the same breaker that guards real traffic.
func (g *Gateway) ProbeHealth(ctx context.Context, dependency string) error {
	base, ok := g.services[dependency]
	if !ok {
		return fmt.Errorf("unknown analysis dependency: %s", dependency)
	}

	return g.breakers.Get(dependency).Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
		if err != nil {
			return err
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health probe returned %d", resp.StatusCode)
		}
		return nil
	})
}

// Dependencies returns the configured dependency names, sorted for stable
// health output.
func (g *Gateway) Dependencies() []string {
	names := make([]string, 0, len(g.services))
	for name := range g.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *Gateway) post(ctx context.Context, dependency, path string, payload any) error {
	base, ok := g.services[dependency]
	if !ok {
		return fmt.Errorf("unknown analysis dependency: %s", dependency)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", dependency, err)
	}

	return g.breakers.Get(dependency).Execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(internalKeyHeader, g.internalKey)

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		// 4xx means the relay sent something the service rejects; that is
		// not a dependency failure and must not trip the breaker.
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%s returned %d", dependency, resp.StatusCode)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			g.logger.Warnw("analysis service rejected payload",
				"dependency", dependency,
				"path", path,
				"status", resp.StatusCode,
			)
		}
		return nil
	})
}

var _ ports.AnalysisGateway = (*Gateway)(nil)
