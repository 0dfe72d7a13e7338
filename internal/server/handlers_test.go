package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"resourcerush/internal/broadcast"
	"resourcerush/internal/config"
	"resourcerush/internal/game"
	"resourcerush/internal/metrics"
	"resourcerush/internal/protocol"
	"resourcerush/internal/records"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv    *Server
	ts     *httptest.Server
	mirror *records.Mirror
	gw     *records.Memory
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	gw := records.NewMemory(nil)
	mirror := records.NewMirror(gw, logger, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go mirror.Run(ctx)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	bc := broadcast.NewBroadcaster(logger)
	coord := game.NewCoordinator(game.Config{}, game.Deps{
		Broadcaster: bc,
		Recorder:    mirror,
		Metrics:     m,
		Logger:      logger,
	})

	srv := &Server{
		Coord:       coord,
		Broadcaster: bc,
		Gateway:     gw,
		Metrics:     m,
		Config:      config.Config{AllowedOrigins: []string{"*"}, MessageRate: 100, MessageBurst: 100},
		Log:         logger,
	}
	ts := httptest.NewServer(srv.Handler(reg))
	t.Cleanup(func() {
		ts.Close()
		coord.Stop()
		cancel()
	})
	return &testEnv{srv: srv, ts: ts, mirror: mirror, gw: gw}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(e.ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(msg)))
}

// readUntil reads messages until one of type typ arrives and decodes its payload.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", typ)
		var env struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == typ {
			require.NoError(t, json.Unmarshal(env.Payload, v))
			return
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestWebSocketCreateAndJoin(t *testing.T) {
	env := newTestServer(t)
	alice := env.dial(t)
	bob := env.dial(t)

	sendMsg(t, alice, `{"type":"create-room","payload":{"name":"Floor","playerName":"Alice"}}`)
	var created protocol.RoomCreated
	readUntil(t, alice, protocol.RoomCreatedType, &created)
	require.Len(t, created.RoomID, 9)

	sendMsg(t, bob, `{"type":"join-room","payload":{"roomId":"`+strings.ToLower(created.RoomID)+`","playerName":"Bob"}}`)
	var joined protocol.RoomJoined
	readUntil(t, bob, protocol.RoomJoinedType, &joined)
	assert.Equal(t, created.RoomID, joined.RoomID)

	var pj protocol.PlayerJoined
	readUntil(t, alice, protocol.PlayerJoinedType, &pj)
	assert.Equal(t, "Bob", pj.PlayerName)

	sendMsg(t, bob, `{"type":"start-game"}`)
	var e protocol.Error
	readUntil(t, bob, protocol.ErrorType, &e)
	assert.Equal(t, "NotHost", e.Kind)

	resp, err := http.Get(env.ts.URL + "/api/rooms/" + created.RoomID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st protocol.RoomState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Len(t, st.Players, 2)
	assert.Equal(t, "waiting", st.Status)
}

func TestDisconnectMarksPlayer(t *testing.T) {
	env := newTestServer(t)
	alice := env.dial(t)
	bob := env.dial(t)

	sendMsg(t, alice, `{"type":"create-room","payload":{"name":"Floor","playerName":"Alice"}}`)
	var created protocol.RoomCreated
	readUntil(t, alice, protocol.RoomCreatedType, &created)
	sendMsg(t, bob, `{"type":"join-room","payload":{"roomId":"`+created.RoomID+`","playerName":"Bob"}}`)
	var joined protocol.RoomJoined
	readUntil(t, bob, protocol.RoomJoinedType, &joined)

	require.NoError(t, alice.Close(websocket.StatusNormalClosure, "bye"))

	var pd protocol.PlayerDisconnected
	readUntil(t, bob, protocol.PlayerDisconnectedType, &pd)
	assert.Equal(t, "Alice", pd.PlayerName)

	st, err := env.srv.Coord.State(created.RoomID)
	require.NoError(t, err)
	for _, p := range st.Players {
		if p.Name == "Alice" {
			assert.False(t, p.Connected)
		}
	}
}

func TestListRoomsFromMirror(t *testing.T) {
	env := newTestServer(t)
	alice := env.dial(t)

	sendMsg(t, alice, `{"type":"create-room","payload":{"name":"Floor","playerName":"Alice"}}`)
	var created protocol.RoomCreated
	readUntil(t, alice, protocol.RoomCreatedType, &created)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, env.mirror.Flush(ctx))

	resp, err := http.Get(env.ts.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list protocol.PublicRooms
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, created.RoomID, list.Rooms[0].ID)
	assert.Equal(t, "Alice", list.Rooms[0].HostName)
	assert.Equal(t, 4, list.Rooms[0].MaxPlayers)
}

func TestGetRoomNotFound(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.ts.URL + "/api/rooms/NOSUCHRM1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var e protocol.Error
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Equal(t, "RoomNotFound", e.Kind)
}

func TestCORSHeaders(t *testing.T) {
	env := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t)

	resp, err := http.Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
