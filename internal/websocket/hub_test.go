package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasteroute-backend/internal/middleware"
	"wasteroute-backend/internal/models"
)

const testSecret = "ws-secret"

func dial(t *testing.T, server *httptest.Server, user *models.User) *websocket.Conn {
	t.Helper()
	token, err := middleware.IssueToken(testSecret, user, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestHubDeliversToUserAndRole(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(HandleWebSocket(hub, testSecret))
	defer server.Close()

	collectorConn := dial(t, server, &models.User{ID: "collector-1", Email: "c@example.com", Role: models.RoleCollector})
	adminConn := dial(t, server, &models.User{ID: "admin-1", Email: "a@example.com", Role: models.RoleAdmin})

	require.Eventually(t, func() bool {
		return hub.IsUserConnected("collector-1") && hub.IsUserConnected("admin-1")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, hub.GetClientCount())

	hub.BroadcastToUser("collector-1", map[string]string{"type": "pickup.started"})
	msg := readJSON(t, collectorConn)
	assert.Equal(t, "pickup.started", msg["type"])

	hub.BroadcastToRole(string(models.RoleAdmin), map[string]string{"type": "report.assigned"})
	msg = readJSON(t, adminConn)
	assert.Equal(t, "report.assigned", msg["type"])
}

func TestHubAnswersPing(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(HandleWebSocket(hub, testSecret))
	defer server.Close()

	conn := dial(t, server, &models.User{ID: "citizen-1", Email: "z@example.com", Role: models.RoleCitizen})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	msg := readJSON(t, conn)
	assert.Equal(t, "pong", msg["type"])
}

func TestHandleWebSocketRejectsBadToken(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	handler := HandleWebSocket(hub, testSecret)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReplyToReplacedClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := NewClient("collector-1", string(models.RoleCollector), nil, hub)
	second := NewClient("collector-1", string(models.RoleCollector), nil, hub)
	hub.register <- first
	hub.register <- second

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.clients["collector-1"] == second
	}, 2*time.Second, 10*time.Millisecond)

	_, open := <-first.send
	assert.False(t, open, "replaced client's queue must be closed")

	assert.NotPanics(t, func() {
		assert.False(t, hub.reply(first, []byte(`{"type":"pong"}`)))
	})
	assert.True(t, hub.reply(second, []byte(`{"type":"pong"}`)))
}

func TestPingOnReplacedConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(HandleWebSocket(hub, testSecret))
	defer server.Close()

	user := &models.User{ID: "citizen-1", Email: "z@example.com", Role: models.RoleCitizen}
	oldConn := dial(t, server, user)
	require.Eventually(t, func() bool { return hub.IsUserConnected("citizen-1") }, 2*time.Second, 10*time.Millisecond)
	newConn := dial(t, server, user)

	// The old connection may already be torn down; either way the server must survive
	_ = oldConn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))

	require.NoError(t, newConn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	msg := readJSON(t, newConn)
	assert.Equal(t, "pong", msg["type"])
	assert.Equal(t, 1, hub.GetClientCount())
}
