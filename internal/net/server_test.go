package net

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stellardominion/server/internal/config"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const secret = "hunter2"

func newTestServer(t *testing.T, tune ...func(*config.GatewayConfig)) (*Server, *httptest.Server) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Default().Gateway
	cfg.TokenHash = string(hash)
	cfg.Path = "/ws"
	for _, fn := range tune {
		fn(&cfg)
	}
	gw := NewServer(cfg, zap.NewNop())
	ts := httptest.NewServer(gw.Handler())
	t.Cleanup(ts.Close)
	return gw, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

// waitSessions plays the game loop until n sessions are live.
func waitSessions(t *testing.T, gw *Server, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return gw.Sessions() == n }, 5*time.Second, 10*time.Millisecond)
}

func TestCommandsAreStampedWithSessionFaction(t *testing.T) {
	gw, ts := newTestServer(t)
	conn := dial(t, ts, "token="+secret+"&faction=2")

	hello := readJSON(t, conn)
	assert.Equal(t, "welcome", hello["type"])
	assert.Equal(t, false, hello["observer"])

	msg := `{"type":"move_ship","faction":9,"ship":3,"target":{"x":1,"y":2}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))

	var got []event.Event
	require.Eventually(t, func() bool {
		got = append(got, gw.Drain(0)...)
		return len(got) == 1
	}, 5*time.Second, 10*time.Millisecond)
	mv, ok := got[0].(event.MoveShip)
	require.True(t, ok)
	assert.Equal(t, world.FactionID(2), mv.Faction)
	assert.Equal(t, world.ShipID(3), mv.Ship)
}

func TestObserversReceiveButCannotCommand(t *testing.T) {
	gw, ts := newTestServer(t)
	conn := dial(t, ts, "")
	hello := readJSON(t, conn)
	assert.Equal(t, true, hello["observer"])
	waitSessions(t, gw, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pause","paused":true}`)))
	reply := readJSON(t, conn)
	assert.Equal(t, "error", reply["type"])

	gw.Publish(event.SpeedChanged{Speed: 2})
	note := readJSON(t, conn)
	assert.Equal(t, "speed_changed", note["type"])
	assert.Empty(t, gw.Drain(0))
}

func TestBadCommandGetsErrorReply(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts, "token="+secret)
	readJSON(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"tick_completed"}`)))
	reply := readJSON(t, conn)
	assert.Equal(t, "error", reply["type"])
	assert.Contains(t, reply["reason"], "unknown command")
}

func TestFloodingSessionIsThrottled(t *testing.T) {
	gw, ts := newTestServer(t, func(c *config.GatewayConfig) {
		c.MessageRate = 0.001
		c.MessageBurst = 1
	})
	conn := dial(t, ts, "token="+secret)
	readJSON(t, conn)

	msg := []byte(`{"type":"set_speed","speed":2}`)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
	reply := readJSON(t, conn)
	assert.Equal(t, "error", reply["type"])
	assert.Equal(t, "too many messages", reply["reason"])

	var got []event.Event
	require.Eventually(t, func() bool {
		got = append(got, gw.Drain(0)...)
		return len(got) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, event.SetSpeed{Speed: 2}, got[0])
}

func TestWrongTokenRefused(t *testing.T) {
	_, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDrainHonoursLimit(t *testing.T) {
	gw := NewServer(config.Default().Gateway, zap.NewNop())
	for i := 0; i < 5; i++ {
		gw.inbox <- event.SetSpeed{Speed: float64(i)}
	}
	assert.Len(t, gw.Drain(3), 3)
	assert.Len(t, gw.Drain(0), 2)
}

func TestSlowSessionIsDropped(t *testing.T) {
	gw := NewServer(config.Default().Gateway, zap.NewNop())
	slow := newSession(nil, 1, 1, gw.inbox, zap.NewNop())
	slow.dead = gw.notifyDead
	gw.sessions[slow.ID] = slow

	gw.Publish(event.SpeedChanged{Speed: 1})
	assert.Equal(t, 1, gw.Sessions())
	gw.Publish(event.SpeedChanged{Speed: 2})
	assert.True(t, slow.IsClosed())
	assert.Zero(t, gw.Sessions())
	assert.EqualValues(t, 1, gw.Dropped())
}
