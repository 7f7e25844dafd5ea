package feed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	hub := NewHub(logger)

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	hub.Broadcast(map[string]interface{}{
		"type":   "Mint",
		"amount": 30,
	})

	var got map[string]interface{}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "Mint", got["type"])
	assert.Equal(t, float64(30), got["amount"])
}

func TestHubMultipleClients(t *testing.T) {
	hub, srv := newTestHub(t)

	first := dial(t, srv)
	second := dial(t, srv)
	waitForClients(t, hub, 2)

	hub.Broadcast(map[string]string{"type": "Transfer"})

	for _, conn := range []*websocket.Conn{first, second} {
		var got map[string]string
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "Transfer", got["type"])
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting with no clients is a no-op.
	hub.Broadcast(map[string]string{"type": "Burn"})
}
