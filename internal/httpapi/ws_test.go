package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewire/assertions/internal/auth"
	"github.com/notewire/assertions/internal/delivery"
	"github.com/notewire/assertions/internal/graph"
)

func TestWSUpgrade_AuthenticatedConnectionRegisters(t *testing.T) {
	registry := delivery.NewRegistry()
	h := &wsHandler{registry: registry}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		h.Upgrade(w, r.WithContext(auth.WithViewer(r.Context(), graph.Viewer{ID: "u1"})))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		delivered, count := registry.DeliverToUser("u1", map[string]string{"type": "ping"})
		return delivered && count == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWSUpgrade_MissingViewerRejectedBeforeUpgrade(t *testing.T) {
	registry := delivery.NewRegistry()
	h := &wsHandler{registry: registry}

	server := httptest.NewServer(http.HandlerFunc(h.Upgrade))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notifications"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, 401, resp.StatusCode)
	}
}
