package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"arcos-chat/internal/models"
)

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(u, header)
}

func waitForConnections(t *testing.T, h *Hub, sessionID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Connections(sessionID) == n }, time.Second, 10*time.Millisecond)
}

func TestHub_PublishReachesOnlyTheSession(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("sid"))
	}))
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	mine, _, err := websocket.DefaultDialer.Dial(u+"?sid=sess_a", nil)
	require.NoError(t, err)
	defer mine.Close()
	other, _, err := websocket.DefaultDialer.Dial(u+"?sid=sess_b", nil)
	require.NoError(t, err)
	defer other.Close()

	waitForConnections(t, hub, "sess_a", 1)
	waitForConnections(t, hub, "sess_b", 1)

	hub.Publish(context.Background(), "sess_a", models.ConversationEvent{
		Type:           models.EventStateChanged,
		ConversationID: "c1",
		State:          models.StateAwaitingReply,
	})

	mine.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := mine.ReadMessage()
	require.NoError(t, err)

	var ev models.ConversationEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	require.Equal(t, "c1", ev.ConversationID)
	require.Equal(t, models.StateAwaitingReply, ev.State)

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	require.Error(t, err, "other session receives nothing")
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "sess_a")
	}))
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	waitForConnections(t, hub, "sess_a", 1)

	conn.Close()
	waitForConnections(t, hub, "sess_a", 0)
}

func TestHub_RejectsCrossOrigin(t *testing.T) {
	hub := NewHub(nil, "https://shop.example")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "sess_a")
	}))
	defer srv.Close()

	_, resp, err := dial(t, srv, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, http.Header{"Origin": []string{"https://shop.example"}})
	require.NoError(t, err)
	conn.Close()
}
