package analysis_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"talentwire/internal/infrastructure/analysis"
	"talentwire/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var testLogger = zap.NewNop().Sugar()

func testBreakers() *circuitbreaker.Registry {
	return circuitbreaker.NewRegistry(circuitbreaker.Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		RollingWindow:       time.Second,
		ResetTimeout:        time.Second,
		MaxRequestsHalfOpen: 1,
	})
}

func newTestGateway(fraudURL string) (*analysis.Gateway, *circuitbreaker.Registry) {
	breakers := testBreakers()
	gw := analysis.NewGateway(map[string]string{"fraud": fraudURL}, "test-key", time.Second, breakers, testLogger)
	return gw, breakers
}

func TestSubmitFrame_SendsInternalKeyAndPayload(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Internal-Api-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw, _ := newTestGateway(srv.URL)
	err := gw.SubmitFrame(context.Background(), "round-1", "ZnJhbWU=", 1500)

	assert.NoError(t, err)
	assert.Equal(t, "/analyze/video", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "round-1", gotBody["round_id"])
	assert.Equal(t, "ZnJhbWU=", gotBody["frame_base64"])
	assert.EqualValues(t, 1500, gotBody["timestamp_ms"])
}

func TestSubmitAudio_UsesAudioEndpoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw, _ := newTestGateway(srv.URL)
	err := gw.SubmitAudio(context.Background(), "round-1", "YXVkaW8=", 1500)

	assert.NoError(t, err)
	assert.Equal(t, "/analyze/audio", gotPath)
	assert.Equal(t, "YXVkaW8=", gotBody["audio_base64"])
	assert.EqualValues(t, 16000, gotBody["sample_rate"])
}

func TestSubmit_ServerErrorsTripBreaker(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw, breakers := newTestGateway(srv.URL)

	for i := 0; i < 2; i++ {
		err := gw.SubmitFrame(context.Background(), "round-1", "ZnJhbWU=", 0)
		assert.Error(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, breakers.Get("fraud").GetState())

	// Open breaker short-circuits: no more traffic reaches the detector.
	err := gw.SubmitFrame(context.Background(), "round-1", "ZnJhbWU=", 0)
	var open *circuitbreaker.ErrOpen
	assert.ErrorAs(t, err, &open)
	assert.EqualValues(t, 2, calls.Load())
}

func TestSubmit_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	gw, breakers := newTestGateway(srv.URL)

	// A rejected payload is the relay's problem, not a dependency failure.
	for i := 0; i < 5; i++ {
		err := gw.SubmitFrame(context.Background(), "round-1", "ZnJhbWU=", 0)
		assert.NoError(t, err)
	}
	assert.Equal(t, circuitbreaker.StateClosed, breakers.Get("fraud").GetState())
}

func TestSubmit_UnknownDependency(t *testing.T) {
	gw := analysis.NewGateway(map[string]string{}, "key", time.Second, testBreakers(), testLogger)

	err := gw.SubmitFrame(context.Background(), "round-1", "ZnJhbWU=", 0)
	assert.Error(t, err)
}

func TestProbeHealth(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	gw, _ := newTestGateway(srv.URL)

	assert.NoError(t, gw.ProbeHealth(context.Background(), "fraud"))

	healthy = false
	assert.Error(t, gw.ProbeHealth(context.Background(), "fraud"))

	assert.Error(t, gw.ProbeHealth(context.Background(), "speech"), "unconfigured dependency")
}

func TestDependencies_Sorted(t *testing.T) {
	gw := analysis.NewGateway(map[string]string{
		"video":  "http://v",
		"fraud":  "http://f",
		"speech": "http://s",
	}, "key", time.Second, testBreakers(), testLogger)

	assert.Equal(t, []string{"fraud", "speech", "video"}, gw.Dependencies())
}
