package controller

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	roomRedis "github.com/cowatch/server/internal/repository/room/redis"
	"github.com/cowatch/server/internal/service/room"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "admin-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	clock := clockwork.NewRealClock()
	roomService := room.NewService(roomRedis.NewRepo(rc, slog.Default(), clock), nil, clock, slog.Default(), &room.Config{
		Secret:            "test-secret",
		RoomTTL:           24 * time.Hour,
		ReactionTTL:       4 * time.Second,
		HostLeaseTTL:      10 * time.Second,
		MessagesLimit:     100,
		ReactionsLimit:    100,
		ParticipantsLimit: 10,
		CacheSize:         16,
		CacheTTL:          time.Minute,
	})
	c := NewController(roomService, clock, slog.Default(), &Config{
		AdminToken:   testAdminToken,
		FeedInterval: 20 * time.Millisecond,
	})

	srv := httptest.NewServer(c.GetMux())
	t.Cleanup(srv.Close)

	return srv
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Errors []struct {
		Field string `json:"field"`
		Code  string `json:"code"`
	} `json:"errors"`
}

func doRequest(t *testing.T, method, url, token, body string) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}

	return resp.StatusCode, env
}

type createdRoom struct {
	RoomId        string `json:"room_id"`
	ParticipantId string `json:"participant_id"`
	Token         string `json:"token"`
}

func createRoom(t *testing.T, srv *httptest.Server) createdRoom {
	t.Helper()

	status, env := doRequest(t, http.MethodPost, srv.URL+"/api/v1/rooms", "", `{"video_id":"dQw4w9WgXcQ","username":"host"}`)
	require.Equal(t, http.StatusCreated, status, env.Error)

	var created createdRoom
	require.NoError(t, json.Unmarshal(env.Data, &created))

	return created
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestCreateRoomValidation(t *testing.T) {
	srv := newTestServer(t)

	status, env := doRequest(t, http.MethodPost, srv.URL+"/api/v1/rooms", "", `{"video_id":"short","username":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, env.Errors, 2)
	assert.Equal(t, "video_id", env.Errors[0].Field)
	assert.Equal(t, "LEN", env.Errors[0].Code)

	status, _ = doRequest(t, http.MethodPost, srv.URL+"/api/v1/rooms", "", `{"video_id":"dQw4w9WgXcQ","username":"a","extra":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestRoomLifecycle(t *testing.T) {
	srv := newTestServer(t)
	created := createRoom(t, srv)
	roomURL := srv.URL + "/api/v1/rooms/" + created.RoomId

	status, env := doRequest(t, http.MethodGet, roomURL, "", "")
	require.Equal(t, http.StatusOK, status)
	var state room.RoomState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, created.RoomId, state.RoomId)

	status, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/rooms/nothere1", "", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, env = doRequest(t, http.MethodPost, roomURL+"/participants", "", `{"username":"guest"}`)
	require.Equal(t, http.StatusCreated, status)
	var joined createdRoom
	require.NoError(t, json.Unmarshal(env.Data, &joined))

	status, _ = doRequest(t, http.MethodPatch, roomURL+"/player", "", `{"status":1,"time":10}`)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, http.MethodPatch, roomURL+"/player", joined.Token, `{"status":1,"time":10}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doRequest(t, http.MethodPatch, roomURL+"/player", created.Token, `{"status":4,"time":10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = doRequest(t, http.MethodPatch, roomURL+"/player", created.Token, `{"status":1}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = doRequest(t, http.MethodPatch, roomURL+"/player", created.Token, `{"status":1,"time":42.5}`)
	require.Equal(t, http.StatusOK, status, env.Error)

	status, env = doRequest(t, http.MethodGet, roomURL+"/player", "", "")
	require.Equal(t, http.StatusOK, status)
	var report struct {
		Status int     `json:"status"`
		Time   float64 `json:"time"`
		Seq    int64   `json:"seq"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.Status)
	assert.Equal(t, 42.5, report.Time)
	assert.Equal(t, int64(1), report.Seq)

	status, _ = doRequest(t, http.MethodPost, roomURL+"/host", joined.Token, "")
	assert.Equal(t, http.StatusConflict, status)

	status, _ = doRequest(t, http.MethodPost, roomURL+"/messages", joined.Token, `{"message":"hello"}`)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = doRequest(t, http.MethodPost, roomURL+"/messages", joined.Token, `{"message":"`+strings.Repeat("a", 501)+`"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doRequest(t, http.MethodPost, roomURL+"/reactions", joined.Token, `{"emoji":"🎉"}`)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = doRequest(t, http.MethodDelete, roomURL+"/participants/me", created.Token, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, env = doRequest(t, http.MethodPost, roomURL+"/host", joined.Token, "")
	require.Equal(t, http.StatusOK, status, env.Error)

	status, env = doRequest(t, http.MethodGet, roomURL, "", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, joined.ParticipantId, state.HostId)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "guest", state.Messages[0].Username)
	assert.Len(t, state.Reactions, 1)
}

func TestAdmin(t *testing.T) {
	srv := newTestServer(t)
	created := createRoom(t, srv)

	status, _ := doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/rooms", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/rooms", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := doRequest(t, http.MethodGet, srv.URL+"/api/v1/admin/rooms", testAdminToken, "")
	require.Equal(t, http.StatusOK, status)
	var rooms []room.RoomSummary
	require.NoError(t, json.Unmarshal(env.Data, &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, created.RoomId, rooms[0].RoomId)

	status, _ = doRequest(t, http.MethodDelete, srv.URL+"/api/v1/admin/rooms/"+created.RoomId, testAdminToken, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = doRequest(t, http.MethodGet, srv.URL+"/api/v1/rooms/"+created.RoomId, "", "")
	assert.Equal(t, http.StatusNotFound, status)

	// the creator's token outlives the room
	status, _ = doRequest(t, http.MethodPatch, srv.URL+"/api/v1/rooms/"+created.RoomId+"/player", created.Token, `{"status":1,"time":3}`)
	assert.Equal(t, http.StatusNotFound, status)
}

type wsOutput struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readOutput(t *testing.T, conn *websocket.Conn) wsOutput {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var o wsOutput
	require.NoError(t, conn.ReadJSON(&o))

	return o
}

func TestWatchRoom(t *testing.T) {
	srv := newTestServer(t)
	created := createRoom(t, srv)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/rooms/" + created.RoomId

	resp, err := http.Get(srv.URL + "/api/v1/ws/rooms/nothere1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readOutput(t, conn)
	assert.Equal(t, "ROOM_STATE", first.Type)

	status, _ := doRequest(t, http.MethodPatch, srv.URL+"/api/v1/rooms/"+created.RoomId+"/player", created.Token, `{"status":2,"time":7}`)
	require.Equal(t, http.StatusOK, status)

	changed := readOutput(t, conn)
	require.Equal(t, "ROOM_STATE", changed.Type)
	var state room.RoomState
	require.NoError(t, json.Unmarshal(changed.Payload, &state))
	assert.Equal(t, int64(1), state.Player.Seq)
	assert.Equal(t, 7.0, state.Player.Time)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "NOPE"}))
	assert.Equal(t, "ERROR", readOutput(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "GET_STATE"}))
	assert.Equal(t, "ROOM_STATE", readOutput(t, conn).Type)

	status, _ = doRequest(t, http.MethodDelete, srv.URL+"/api/v1/admin/rooms/"+created.RoomId, testAdminToken, "")
	require.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, "ROOM_CLOSED", readOutput(t, conn).Type)
}
