package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4NDR3S-01/ExposIA/domain"
	"github.com/4NDR3S-01/ExposIA/hub"
	"github.com/4NDR3S-01/ExposIA/protocol"
	"github.com/4NDR3S-01/ExposIA/routing"
	"github.com/4NDR3S-01/ExposIA/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *hub.Hub) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := hub.New(routing.NewStandard(routing.DefaultOptions()), hub.WithLogger(logger))
	s := NewServer(h, Options{Token: "dev", Socket: websocket.DefaultConfig()}, logger)
	return s, h
}

func do(t *testing.T, s *Server, method, target, body string, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestNotify_Auth(t *testing.T) {
	body := `{"event":"test.event","payload":{"message":"test"}}`

	tests := []struct {
		name       string
		target     string
		header     http.Header
		wantStatus int
	}{
		{name: "missing token", target: "/notify", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", target: "/notify?token=nope", wantStatus: http.StatusUnauthorized},
		{name: "query token", target: "/notify?token=dev", wantStatus: http.StatusOK},
		{name: "bearer token", target: "/notify", header: http.Header{"Authorization": {"Bearer dev"}}, wantStatus: http.StatusOK},
		{name: "service header", target: "/notify", header: http.Header{"X-Service-Token": {"dev"}}, wantStatus: http.StatusOK},
		{name: "basic auth is not a token", target: "/notify", header: http.Header{"Authorization": {"Basic ZGV2"}}, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, h := newTestServer(t)

			rec, resp := do(t, s, http.MethodPost, tt.target, body, tt.header)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, true, resp["success"])
				assert.Equal(t, "test.event", resp["event"])
				assert.Len(t, h.History(), 1)
			} else {
				assert.Equal(t, "invalid token", resp["detail"])
				assert.Empty(t, h.History(), "rejected before any mutation")
			}
		})
	}
}

func TestNotify_InvalidBody(t *testing.T) {
	s, h := newTestServer(t)

	rec, _ := do(t, s, http.MethodPost, "/notify?token=dev", `{"payload":{}}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/notify?token=dev", `not json`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Empty(t, h.History())
}

func TestReadOnlyEndpoints(t *testing.T) {
	s, h := newTestServer(t)
	h.Submit(fakeNotification("grabacion.creada"))
	h.Submit(fakeNotification("metrica.creada"))

	rec, health := do(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(0), health["connections"])

	rec, stats := do(t, s, http.MethodGet, "/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), stats["total_connections"])
	assert.Equal(t, float64(2), stats["total_notifications_sent"])
	assert.Contains(t, stats, "rooms")
	assert.Contains(t, stats, "clients")
	assert.Len(t, stats["recent_notifications"], 2)

	rec, history := do(t, s, http.MethodGet, "/history", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), history["total"])
	entries := history["history"].([]any)
	assert.Equal(t, "grabacion.creada", entries[0].(map[string]any)["event"])

	rec, root := do(t, s, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, root, "endpoints")
}

func TestTestNotification(t *testing.T) {
	s, h := newTestServer(t)

	rec, _ := do(t, s, http.MethodPost, "/test-notification", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := do(t, s, http.MethodPost, "/test-notification?token=dev", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["success"])

	history := h.History()
	require.Len(t, history, 1)
	assert.Equal(t, "test.notification", history[0].Event)
	assert.Equal(t, "test-endpoint", history[0].Source)
}

func TestWebSocket_EndToEnd(t *testing.T) {
	s, h := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	a := dial(t, wsURL+"/ws/a?user_id=7")
	defer a.Close()
	assert.Equal(t, protocol.TypeConnectionEstablished, read(t, a).Type)

	b := dial(t, wsURL+"/ws/b")
	defer b.Close()
	assert.Equal(t, protocol.TypeConnectionEstablished, read(t, b).Type)

	joined := read(t, a)
	assert.Equal(t, protocol.TypeUserJoined, joined.Type)
	assert.Equal(t, "b", joined.ClientID)

	// chat from a reaches b only
	require.NoError(t, a.WriteMessage(gws.TextMessage, []byte(`{"type":"chat_message","message":"hi"}`)))
	chat := read(t, b)
	assert.Equal(t, protocol.TypeChatMessage, chat.Type)
	assert.Equal(t, "a", chat.ClientID)
	assert.Equal(t, "hi", chat.Message)

	// a malformed frame gets exactly one error and keeps the socket open
	require.NoError(t, b.WriteMessage(gws.TextMessage, []byte("not json")))
	assert.Equal(t, protocol.TypeError, read(t, b).Type)

	require.NoError(t, b.WriteMessage(gws.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, protocol.TypePong, read(t, b).Type)

	// a saw nothing for its own chat or b's error; the next thing it sees is
	// the user-scoped notification
	rec, _ := do(t, s, http.MethodPost, "/notify?token=dev", `{"event":"user.achievement","payload":{"usuarioId":7,"temaId":5},"source":"svc"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	note := read(t, a)
	assert.Equal(t, protocol.TypeSystemNotification, note.Type)
	assert.Equal(t, "user.achievement", note.Event)
	assert.Equal(t, "svc", note.Source)

	require.NoError(t, a.Close())
	left := read(t, b)
	assert.Equal(t, protocol.TypeUserLeft, left.Type)
	assert.Equal(t, "a", left.ClientID)

	assert.Eventually(t, func() bool { return h.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_ReconnectReplacesSocket(t *testing.T) {
	s, h := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	first := dial(t, wsURL+"/ws/dup")
	defer first.Close()
	read(t, first)

	second := dial(t, wsURL+"/ws/dup")
	defer second.Close()
	assert.Equal(t, protocol.TypeConnectionEstablished, read(t, second).Type)

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := first.ReadMessage()
	assert.True(t, gws.IsCloseError(err, gws.CloseNoStatusReceived), "old socket is closed, got %v", err)

	require.NoError(t, second.WriteMessage(gws.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, protocol.TypePong, read(t, second).Type)
	assert.Equal(t, 1, h.ConnectionCount())
}

func fakeNotification(event string) domain.Notification {
	return domain.Notification{Event: event, Payload: map[string]any{"id": 1}, Source: "test"}
}

func dial(t *testing.T, url string) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func read(t *testing.T, conn *gws.Conn) protocol.Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg protocol.Outbound
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}
