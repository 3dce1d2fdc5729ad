package delivery

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

func newTestConnPair(t *testing.T, registry *Registry, recipientID string) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		registry.Register(recipientID, ws)
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return client, func() {
		client.Close()
		server.Close()
	}
}

func TestDeliverToUser_WritesToAllConnectionsForRecipient(t *testing.T) {
	registry := NewRegistry()
	_, cleanup := newTestConnPair(t, registry, "user-1")
	defer cleanup()

	require.Eventually(t, func() bool {
		registry.mu.RLock()
		defer registry.mu.RUnlock()
		return len(registry.connections["user-1"]) == 1
	}, time.Second, 10*time.Millisecond)

	delivered, count := registry.DeliverToUser("user-1", map[string]string{"hello": "world"})
	require.True(t, delivered)
	require.Equal(t, 1, count)
}

func TestDeliverToUser_NoConnectionsReturnsFalse(t *testing.T) {
	registry := NewRegistry()
	delivered, count := registry.DeliverToUser("nobody", map[string]string{"hello": "world"})
	require.False(t, delivered)
	require.Equal(t, 0, count)
}

func TestUnregister_RemovesConnectionAndClearsEmptyEntry(t *testing.T) {
	registry := NewRegistry()
	client, cleanup := newTestConnPair(t, registry, "user-2")
	defer cleanup()

	require.Eventually(t, func() bool {
		registry.mu.RLock()
		defer registry.mu.RUnlock()
		return len(registry.connections["user-2"]) == 1
	}, time.Second, 10*time.Millisecond)

	registry.mu.RLock()
	c := registry.connections["user-2"][0]
	registry.mu.RUnlock()

	registry.Unregister("user-2", c.ws)

	registry.mu.RLock()
	_, exists := registry.connections["user-2"]
	registry.mu.RUnlock()
	require.False(t, exists)

	_ = client
}
