package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"talentwire/internal/core/domain"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestConn(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+srv.URL[4:], nil)
	require.NoError(t, err)
	return conn
}

func TestClientCloseIsIdempotent(t *testing.T) {
	conn := dialTestConn(t)
	c := newClient("conn-1", domain.Identity{UserID: "user-1"}, conn, 4, time.Second, time.Minute)

	c.close()
	// The read loop's teardown and a hub-side drop can both reach close.
	assert.NotPanics(t, c.close)
	assert.Error(t, c.SendRaw([]byte(`{"type":"insight"}`)))
}

func TestClientSendAfterCloseFails(t *testing.T) {
	conn := dialTestConn(t)
	c := newClient("conn-1", domain.Identity{UserID: "user-1"}, conn, 4, time.Second, time.Minute)

	require.NoError(t, c.Send("insight", map[string]int{"n": 1}))
	c.close()
	assert.Error(t, c.Send("insight", map[string]int{"n": 2}))
}
