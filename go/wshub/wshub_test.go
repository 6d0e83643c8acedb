package wshub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestBroadcast_ReachesAllClients(t *testing.T) {
	hub := New(zaptest.NewLogger(t))
	server := httptest.NewServer(hub)
	defer server.Close()

	first := dial(t, server)
	defer first.Close()
	second := dial(t, server)
	defer second.Close()

	require.Eventually(t, func() bool { return hub.NumClients() == 2 },
		time.Second, 10*time.Millisecond)

	frame := []byte{0x01, 1, 2, 3}
	hub.Broadcast(frame)

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		kind, got, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, kind)
		assert.Equal(t, frame, got)
	}
}

func TestDisconnect_RemovesClient(t *testing.T) {
	hub := New(zaptest.NewLogger(t))
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.NumClients() == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.NumClients() == 0 },
		time.Second, 10*time.Millisecond)
}

func TestBroadcast_NoClientsIsFine(t *testing.T) {
	hub := New(zaptest.NewLogger(t))
	hub.Broadcast([]byte{0x03})
	assert.Equal(t, 0, hub.NumClients())
}
