package ws

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hubServer registers every upgraded connection under the user id from the query string.
func hubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := uuid.MustParse(r.URL.Query().Get("user"))
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(raw, zerolog.New(io.Discard))
		hub.RegisterConnection(userID, conn)
		hub.JoinSession(r.URL.Query().Get("session"), userID)
		go conn.WritePump()
		conn.ReadPump(func(Message) error { return nil })
		hub.UnregisterConnection(userID, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialHub(t *testing.T, srv *httptest.Server, userID uuid.UUID, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + userID.String() + "&session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBroadcastToSessionReachesOnlyMembers(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))
	srv := hubServer(t, hub)

	ana, ben, cai := uuid.New(), uuid.New(), uuid.New()
	anaConn := dialHub(t, srv, ana, "CS101")
	benConn := dialHub(t, srv, ben, "CS101")
	caiConn := dialHub(t, srv, cai, "BIO200")

	require.Eventually(t, func() bool { return hub.SessionMembers("CS101") == 2 && hub.SessionMembers("BIO200") == 1 }, time.Second, 5*time.Millisecond)

	msg, err := NewMessage(TypeGameStarted, GameStartedPayload{SessionID: "CS101", QuestionCount: 3})
	require.NoError(t, err)
	require.NoError(t, hub.BroadcastToSession("CS101", msg))

	for _, conn := range []*websocket.Conn{anaConn, benConn} {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		var got Message
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, TypeGameStarted, got.Type)

		var payload GameStartedPayload
		require.NoError(t, json.Unmarshal(got.Payload, &payload))
		assert.Equal(t, 3, payload.QuestionCount)
	}

	_ = caiConn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	var none Message
	assert.Error(t, caiConn.ReadJSON(&none))
}

func TestUnregisterRemovesMembership(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))
	srv := hubServer(t, hub)

	ana := uuid.New()
	conn := dialHub(t, srv, ana, "CS101")
	require.Eventually(t, func() bool { return hub.InSession("CS101", ana) }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connections() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, hub.InSession("CS101", ana))
	assert.ErrorIs(t, hub.SendToUser(ana, Message{Type: TypePing}), ErrConnectionNotFound)
}

func TestLeaveSessionKeepsOtherMembers(t *testing.T) {
	hub := NewHub(zerolog.New(io.Discard))
	ana, ben := uuid.New(), uuid.New()

	hub.JoinSession("CS101", ana)
	hub.JoinSession("CS101", ben)
	hub.JoinSession("CS101", ana)
	assert.Equal(t, 2, hub.SessionMembers("CS101"))

	hub.LeaveSession("CS101", ana)
	assert.False(t, hub.InSession("CS101", ana))
	assert.True(t, hub.InSession("CS101", ben))

	hub.DropSession("CS101")
	assert.Zero(t, hub.SessionMembers("CS101"))
}
