package gateway

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"talentwire/internal/core/domain"

	"github.com/gorilla/websocket"
)

// ErrSendBufferFull marks a connection whose outbound buffer is saturated.
// The hub disconnects such clients rather than letting one slow reader
// stall a room's fan-out.
var ErrSendBufferFull = errors.New("client send buffer full")

// Envelope is the outbound wire frame for every event delivered to a client.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one authenticated websocket connection. All writes to the
// underlying conn happen on the client's writer goroutine; everything else
// just queues frames.
type Client struct {
	id       string
	identity domain.Identity
	conn     *websocket.Conn

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	writeTimeout time.Duration
	pingInterval time.Duration
}

func newClient(id string, identity domain.Identity, conn *websocket.Conn, bufferSize int, writeTimeout, pingInterval time.Duration) *Client {
	c := &Client{
		id:           id,
		identity:     identity,
		conn:         conn,
		sendCh:       make(chan []byte, bufferSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
	}
	go c.writeLoop()
	return c
}

func (c *Client) ID() string                { return c.id }
func (c *Client) Identity() domain.Identity { return c.identity }

// Send marshals the envelope and queues it. Non-blocking: a full buffer is
// an error, not a stall.
func (c *Client) Send(eventType string, payload any) error {
	data, err := marshalEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

func (c *Client) SendRaw(data []byte) error {
	select {
	case <-c.done:
		return errors.New("client closed")
	default:
	}

	select {
	case c.sendCh <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) writeLoop() {
	pingTicker := time.NewTicker(c.pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case data := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// close stops the writer and closes the conn. Idempotent: the read loop's
// teardown and the hub's slow-client drop can race on the same connection.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func marshalEnvelope(eventType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}
