package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/services"
	"talentwire/internal/infrastructure/gateway"
	"talentwire/internal/infrastructure/repositories/memory"
	"talentwire/pkg/config"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var nopLogger = zap.NewNop().Sugar()

type recordingIngest struct {
	mu        sync.Mutex
	fragments []*domain.MediaFragment
}

func (s *recordingIngest) Submit(ctx context.Context, submitter domain.Identity, fragment *domain.MediaFragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *fragment
	copied.SubmitterID = submitter.UserID
	s.fragments = append(s.fragments, &copied)
	return nil
}

func (s *recordingIngest) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fragments)
}

type recordingInsights struct {
	mu        sync.Mutex
	processed []*domain.Insight
}

func (s *recordingInsights) HandleResultMessage(ctx context.Context, sourceCategory domain.InsightCategory, payload []byte) {
}

func (s *recordingInsights) Process(ctx context.Context, insight *domain.Insight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed = append(s.processed, insight)
}

func (s *recordingInsights) AcknowledgeAlert(ctx context.Context, id domain.FraudAlertID, by domain.UserID, falsePositive bool) error {
	return nil
}

func (s *recordingInsights) processedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}

type wsEnv struct {
	server   *httptest.Server
	auth     services.AuthService
	hub      *gateway.Hub
	ingest   *recordingIngest
	insights *recordingInsights
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()

	rounds := memory.NewRoundRepository()
	rounds.Put(&domain.Round{
		ID:            "round-1",
		CandidateID:   "cand-1",
		InterviewerID: "int-1",
		ScheduledAt:   time.Now(),
	})

	auth := services.NewAuthService("test-secret", time.Minute)
	hub := gateway.NewHub(nil, nil, nopLogger)
	roomService := services.NewRoomService(rounds, memory.NewInsightRepository(), hub, time.Minute, nopLogger)
	ingest := &recordingIngest{}
	insights := &recordingInsights{}

	cfg := config.GatewayConfig{
		PingInterval:    10 * time.Second,
		PongTimeout:     20 * time.Second,
		WriteTimeout:    5 * time.Second,
		MaxMessageBytes: 512 * 1024,
		SendBufferSize:  16,
	}
	wsServer := gateway.NewWebSocketServer(auth, roomService, ingest, insights, cfg, nil, nopLogger)

	srv := httptest.NewServer(http.HandlerFunc(wsServer.HandleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})

	return &wsEnv{server: srv, auth: auth, hub: hub, ingest: ingest, insights: insights}
}

func (e *wsEnv) dial(t *testing.T, userID domain.UserID, role domain.UserRole) *websocket.Conn {
	t.Helper()

	token, err := e.auth.GenerateToken(userID, string(userID)+"@example.com", role)
	require.NoError(t, err)

	wsURL := "ws" + e.server.URL[4:] + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) gateway.Envelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var envelope gateway.Envelope
	require.NoError(t, conn.ReadJSON(&envelope))
	return envelope
}

func writeMessage(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": msgType, "payload": json.RawMessage(raw)}))
}

func TestHandleWebSocket_RejectsMissingToken(t *testing.T) {
	env := newWSEnv(t)

	wsURL := "ws" + env.server.URL[4:] + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)

	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandleWebSocket_JoinRoomFlow(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t, "cand-1", domain.RoleCandidate)

	writeMessage(t, conn, "join_room", map[string]string{"roundId": "round-1"})

	joined := readEnvelope(t, conn)
	assert.Equal(t, domain.EventJoinedRoom, joined.Type)
	assert.JSONEq(t, `{"roundId":"round-1"}`, string(joined.Payload))

	catchUp := readEnvelope(t, conn)
	assert.Equal(t, domain.EventCatchUpBatch, catchUp.Type)

	assert.Eventually(t, func() bool {
		return env.hub.LocalMembers("round-1") == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHandleWebSocket_LeaveRoomKeepsConnectionAlive(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t, "cand-1", domain.RoleCandidate)

	writeMessage(t, conn, "join_room", map[string]string{"roundId": "round-1"})
	readEnvelope(t, conn) // joined_room
	readEnvelope(t, conn) // catch_up_batch

	writeMessage(t, conn, "leave_room", map[string]string{})
	assert.Eventually(t, func() bool {
		return env.hub.LocalMembers("round-1") == 0
	}, time.Second, 5*time.Millisecond)

	// Leaving a room is not a disconnect: the same socket can join again.
	writeMessage(t, conn, "join_room", map[string]string{"roundId": "round-1"})
	rejoined := readEnvelope(t, conn)
	assert.Equal(t, domain.EventJoinedRoom, rejoined.Type)
}

func TestHandleWebSocket_JoinDeniedForStranger(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t, "stranger", domain.RoleCandidate)

	writeMessage(t, conn, "join_room", map[string]string{"roundId": "round-1"})

	denial := readEnvelope(t, conn)
	assert.Equal(t, domain.EventAuthorizationError, denial.Type)
	assert.Equal(t, 0, env.hub.LocalMembers("round-1"))
}

func TestHandleWebSocket_MediaFragmentRequiresJoinedRoom(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t, "cand-1", domain.RoleCandidate)

	writeMessage(t, conn, "media_fragment", map[string]any{
		"roundId": "round-1", "kind": "video", "chunk": "ZnJhbWU=", "timestampMs": 100,
	})

	errEnvelope := readEnvelope(t, conn)
	assert.Equal(t, "error", errEnvelope.Type)
	assert.Equal(t, 0, env.ingest.count())
}

func TestHandleWebSocket_MediaFragmentForwardedAfterJoin(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t, "cand-1", domain.RoleCandidate)

	writeMessage(t, conn, "join_room", map[string]string{"roundId": "round-1"})
	readEnvelope(t, conn) // joined_room
	readEnvelope(t, conn) // catch_up_batch

	writeMessage(t, conn, "media_fragment", map[string]any{
		"roundId": "round-1", "kind": "video", "chunk": "ZnJhbWU=", "timestampMs": 100,
	})

	assert.Eventually(t, func() bool {
		return env.ingest.count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHandleWebSocket_CandidateTabSwitchBecomesInsight(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t, "cand-1", domain.RoleCandidate)

	writeMessage(t, conn, "join_room", map[string]string{"roundId": "round-1"})
	readEnvelope(t, conn)
	readEnvelope(t, conn)

	writeMessage(t, conn, "visibility_change", map[string]any{
		"roundId": "round-1", "hidden": true, "timestampMs": 5000,
	})

	assert.Eventually(t, func() bool {
		return env.insights.processedCount() == 1
	}, time.Second, 5*time.Millisecond)

	env.insights.mu.Lock()
	in := env.insights.processed[0]
	env.insights.mu.Unlock()
	assert.Equal(t, domain.InsightTabSwitch, in.Type)
	assert.Equal(t, domain.RoundID("round-1"), in.RoundID)
}

func TestHandleWebSocket_ReviewerTabSwitchIgnored(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t, "int-1", domain.RoleInterviewer)

	writeMessage(t, conn, "join_room", map[string]string{"roundId": "round-1"})
	readEnvelope(t, conn)
	readEnvelope(t, conn)

	writeMessage(t, conn, "visibility_change", map[string]any{
		"roundId": "round-1", "hidden": true, "timestampMs": 5000,
	})
	// Give the read loop a moment; no insight may appear.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, env.insights.processedCount())
}

func TestHandleWebSocket_UnknownMessageType(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t, "cand-1", domain.RoleCandidate)

	writeMessage(t, conn, "teleport", map[string]string{})

	errEnvelope := readEnvelope(t, conn)
	assert.Equal(t, "error", errEnvelope.Type)
}
