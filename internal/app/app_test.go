package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAppConfig() *AppConfig {
	return &AppConfig{
		Secret:            "secret",
		AdminToken:        "admin",
		Host:              "127.0.0.1",
		Port:              8080,
		LogLevel:          "debug",
		Store:             StoreSqlite,
		SqlitePath:        ":memory:",
		RoomTTL:           24 * time.Hour,
		ReactionTTL:       4 * time.Second,
		HostLeaseTTL:      10 * time.Second,
		MessagesLimit:     100,
		ReactionsLimit:    50,
		ParticipantsLimit: 10,
		CacheSize:         128,
		CacheTTL:          time.Second,
		FeedInterval:      time.Second,
		PurgeInterval:     time.Minute,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *AppConfig)
		ok     bool
	}{
		{name: "valid", mutate: func(*AppConfig) {}, ok: true},
		{name: "empty secret", mutate: func(cfg *AppConfig) { cfg.Secret = "" }},
		{name: "bad port", mutate: func(cfg *AppConfig) { cfg.Port = 0 }},
		{name: "unknown store", mutate: func(cfg *AppConfig) { cfg.Store = "mongo" }},
		{name: "sqlite without path", mutate: func(cfg *AppConfig) { cfg.SqlitePath = "" }},
		{name: "redis without sqlite path", mutate: func(cfg *AppConfig) { cfg.Store = StoreRedis; cfg.SqlitePath = "" }, ok: true},
		{name: "zero room ttl", mutate: func(cfg *AppConfig) { cfg.RoomTTL = 0 }},
		{name: "zero messages limit", mutate: func(cfg *AppConfig) { cfg.MessagesLimit = 0 }},
		{name: "zero participants limit", mutate: func(cfg *AppConfig) { cfg.ParticipantsLimit = 0 }},
		{name: "zero feed interval", mutate: func(cfg *AppConfig) { cfg.FeedInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAppConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger("warn")
	require.NoError(t, err)

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestHandlerWithSqliteStore(t *testing.T) {
	cfg := testAppConfig()
	ctx := context.Background()

	roomRepo, closeRepo, err := openRoomRepo(ctx, cfg, slog.Default(), clockwork.NewRealClock())
	require.NoError(t, err)
	t.Cleanup(closeRepo)

	srv := httptest.NewServer(newHandler(roomRepo, cfg, slog.Default(), clockwork.NewRealClock()))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/v1/rooms", "application/json",
		strings.NewReader(`{"video_id":"dQw4w9WgXcQ","username":"host"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Data struct {
			RoomId string `json:"room_id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Data.RoomId)

	got, err := http.Get(srv.URL + "/api/v1/rooms/" + body.Data.RoomId)
	require.NoError(t, err)
	got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)
}
