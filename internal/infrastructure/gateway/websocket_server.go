package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
	"talentwire/internal/core/services"
	"talentwire/pkg/config"
	"talentwire/pkg/utils"
	"talentwire/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ServerMetrics counts connection lifecycle and inbound traffic.
type ServerMetrics interface {
	ConnectionOpened()
	ConnectionClosed()
	RecordInboundMessage(msgType string)
	RecordRejectedHandshake(reason string)
}

type noopServerMetrics struct{}

func (noopServerMetrics) ConnectionOpened()              {}
func (noopServerMetrics) ConnectionClosed()              {}
func (noopServerMetrics) RecordInboundMessage(string)    {}
func (noopServerMetrics) RecordRejectedHandshake(string) {}

// inboundMessage is the client-to-relay wire frame.
type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinRoomPayload struct {
	RoundID domain.RoundID `json:"roundId"`
}

type mediaFragmentPayload struct {
	RoundID     domain.RoundID   `json:"roundId"`
	Kind        domain.MediaKind `json:"kind"`
	Chunk       string           `json:"chunk"`
	TimestampMs int64            `json:"timestampMs"`
}

type visibilityChangePayload struct {
	RoundID     domain.RoundID `json:"roundId"`
	Hidden      bool           `json:"hidden"`
	TimestampMs int64          `json:"timestampMs"`
}

// WebSocketServer is the relay's single client-facing surface: it gates the
// handshake on a valid token, then dispatches inbound frames to the room,
// ingest and insight services.
type WebSocketServer struct {
	auth     services.AuthService
	rooms    ports.RoomService
	ingest   ports.IngestService
	insights ports.InsightService

	cfg     config.GatewayConfig
	metrics ServerMetrics
	logger  *zap.SugaredLogger
}

func NewWebSocketServer(
	auth services.AuthService,
	rooms ports.RoomService,
	ingest ports.IngestService,
	insights ports.InsightService,
	cfg config.GatewayConfig,
	metrics ServerMetrics,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	if metrics == nil {
		metrics = noopServerMetrics{}
	}
	return &WebSocketServer{
		auth:     auth,
		rooms:    rooms,
		ingest:   ingest,
		insights: insights,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleWebSocket authenticates and upgrades one connection, then runs its
// read loop until disconnect. The token check happens before the upgrade so
// a bad credential costs a plain 401, never a socket.
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := s.auth.ValidateToken(extractToken(r))
	if err != nil {
		s.metrics.RecordRejectedHandshake("invalid_token")
		s.logger.Infow("rejecting handshake", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	identity := claims.Identity()
	client := newClient(
		utils.GenerateConnectionID(),
		identity,
		conn,
		s.cfg.SendBufferSize,
		s.cfg.WriteTimeout,
		s.cfg.PingInterval,
	)

	s.metrics.ConnectionOpened()
	s.logger.Infow("client connected",
		"client_id", client.ID(),
		"user_id", identity.UserID,
		"role", identity.Role,
	)

	s.readLoop(client, conn)

	// Leave is idempotent; covers both explicit leave_room and abrupt drop.
	// The writer is stopped here, not by the hub, so a prior leave_room
	// cannot have torn the connection down already.
	s.rooms.Leave(context.Background(), client)
	client.close()
	s.metrics.ConnectionClosed()
	s.logger.Infow("client disconnected", "client_id", client.ID(), "user_id", identity.UserID)
}

func (s *WebSocketServer) readLoop(client *Client, conn *websocket.Conn) {
	conn.SetReadLimit(s.cfg.MaxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		return nil
	})

	// tracked on the read goroutine only; the authoritative membership map
	// lives in the hub
	var currentRound domain.RoundID

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Infow("read failed", "client_id", client.ID(), "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))

		s.metrics.RecordInboundMessage(msg.Type)
		if err := s.handleMessage(client, msg, &currentRound); err != nil {
			s.sendError(client, err)
		}
	}
}

func (s *WebSocketServer) handleMessage(client *Client, msg inboundMessage, currentRound *domain.RoundID) error {
	ctx := context.Background()

	switch msg.Type {
	case "join_room":
		var payload joinRoomPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid join_room payload: %w", err)
		}
		if err := validation.ValidateRoundID(string(payload.RoundID)); err != nil {
			return fmt.Errorf("invalid roundId: %w", err)
		}
		if err := s.rooms.Join(ctx, client, payload.RoundID); err != nil {
			// denial event already delivered by the room service
			return nil
		}
		*currentRound = payload.RoundID
		return nil

	case "leave_room":
		s.rooms.Leave(ctx, client)
		*currentRound = ""
		return nil

	case "media_fragment":
		var payload mediaFragmentPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid media_fragment payload: %w", err)
		}
		if *currentRound == "" || payload.RoundID != *currentRound {
			return domain.ErrNotInRoom
		}
		return s.ingest.Submit(ctx, client.Identity(), &domain.MediaFragment{
			RoundID:     payload.RoundID,
			Kind:        payload.Kind,
			Payload:     payload.Chunk,
			TimestampMs: payload.TimestampMs,
		})

	case "visibility_change":
		var payload visibilityChangePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid visibility_change payload: %w", err)
		}
		if *currentRound == "" || payload.RoundID != *currentRound {
			return domain.ErrNotInRoom
		}
		// Only the candidate leaving the tab is a fraud signal; reviewers
		// switch tabs all the time.
		if payload.Hidden && client.Identity().Role == domain.RoleCandidate {
			s.insights.Process(ctx, services.TabSwitchInsight(payload.RoundID, payload.TimestampMs))
		}
		return nil

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (s *WebSocketServer) sendError(client *Client, err error) {
	sendErr := client.Send("error", map[string]string{"message": err.Error()})
	if sendErr != nil {
		s.logger.Debugw("failed to deliver error event", "client_id", client.ID(), "error", sendErr)
	}
}

// extractToken reads the credential from the Authorization header or, for
// browser websocket clients that cannot set headers, the token query param.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
