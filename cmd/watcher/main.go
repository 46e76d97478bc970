package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cowatch/server/internal/client"
	"github.com/cowatch/server/internal/playback"
	"github.com/cowatch/server/internal/simplayer"
	"github.com/cowatch/server/pkg/ctxlogger"
)

const (
	transportPoll = "poll"
	transportWs   = "ws"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	serverURL = configVar[string]{
		envKey:       "WATCHER_SERVER_URL",
		flagKey:      "server-url",
		defaultValue: "http://localhost:80/api/v1",
	}
	roomId = configVar[string]{
		envKey:       "WATCHER_ROOM_ID",
		flagKey:      "room-id",
		defaultValue: "",
	}
	videoId = configVar[string]{
		envKey:       "WATCHER_VIDEO_ID",
		flagKey:      "video-id",
		defaultValue: "",
	}
	username = configVar[string]{
		envKey:       "WATCHER_USERNAME",
		flagKey:      "username",
		defaultValue: "watcher",
	}
	role = configVar[string]{
		envKey:       "WATCHER_ROLE",
		flagKey:      "role",
		defaultValue: "",
	}
	transport = configVar[string]{
		envKey:       "WATCHER_TRANSPORT",
		flagKey:      "transport",
		defaultValue: transportPoll,
	}
	lagLimit = configVar[float64]{
		envKey:       "WATCHER_LAG_LIMIT",
		flagKey:      "lag-limit",
		defaultValue: playback.DefaultLagLimit,
	}
	leadLimit = configVar[float64]{
		envKey:       "WATCHER_LEAD_LIMIT",
		flagKey:      "lead-limit",
		defaultValue: playback.DefaultLeadLimit,
	}
	heartbeat = configVar[time.Duration]{
		envKey:       "WATCHER_HEARTBEAT",
		flagKey:      "heartbeat",
		defaultValue: playback.DefaultHeartbeat,
	}
	pollInterval = configVar[time.Duration]{
		envKey:       "WATCHER_POLL_INTERVAL",
		flagKey:      "poll-interval",
		defaultValue: playback.DefaultPollInterval,
	}
	videoDuration = configVar[time.Duration]{
		envKey:       "WATCHER_VIDEO_DURATION",
		flagKey:      "video-duration",
		defaultValue: 0,
	}
	autoplay = configVar[bool]{
		envKey:       "WATCHER_AUTOPLAY",
		flagKey:      "autoplay",
		defaultValue: true,
	}
	logLevel = configVar[string]{
		envKey:       "WATCHER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
)

type config struct {
	ServerURL     string
	RoomId        string
	VideoId       string
	Username      string
	Role          client.Role
	Transport     string
	Tolerance     playback.Tolerance
	Heartbeat     time.Duration
	PollInterval  time.Duration
	VideoDuration time.Duration
	Autoplay      bool
	LogLevel      string
}

func (c *config) Validate() error {
	if c.RoomId == "" && c.VideoId == "" {
		return errors.New("either room-id or video-id is required")
	}
	if c.Transport != transportPoll && c.Transport != transportWs {
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.VideoDuration < 0 {
		return errors.New("video-duration must not be negative")
	}
	return nil
}

func (c *config) sessionConfig() *client.SessionConfig {
	return &client.SessionConfig{
		Role:         c.Role,
		Heartbeat:    c.Heartbeat,
		PollInterval: c.PollInterval,
		Tolerance:    c.Tolerance,
		UseFeed:      c.Transport == transportWs,
	}
}

func loadConfig() *config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	pflag.String(serverURL.flagKey, serverURL.defaultValue, "API base url")
	pflag.String(roomId.flagKey, roomId.defaultValue, "Room to join, empty creates a new one")
	pflag.String(videoId.flagKey, videoId.defaultValue, "YouTube video id of a new room")
	pflag.String(username.flagKey, username.defaultValue, "Participant name")
	pflag.String(role.flagKey, role.defaultValue, "host or follower, defaults to host for a new room")
	pflag.String(transport.flagKey, transport.defaultValue, "Follower transport: poll or ws")
	pflag.Float64(lagLimit.flagKey, lagLimit.defaultValue, "Accepted drift behind the host in seconds")
	pflag.Float64(leadLimit.flagKey, leadLimit.defaultValue, "Accepted drift ahead of the host in seconds")
	pflag.Duration(heartbeat.flagKey, heartbeat.defaultValue, "Host heartbeat")
	pflag.Duration(pollInterval.flagKey, pollInterval.defaultValue, "Follower poll interval")
	pflag.Duration(videoDuration.flagKey, videoDuration.defaultValue, "Simulated video length, 0 is unbounded")
	pflag.Bool(autoplay.flagKey, autoplay.defaultValue, "Host starts playing right after loading")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(serverURL.flagKey, serverURL.envKey)
	viper.BindEnv(roomId.flagKey, roomId.envKey)
	viper.BindEnv(videoId.flagKey, videoId.envKey)
	viper.BindEnv(username.flagKey, username.envKey)
	viper.BindEnv(role.flagKey, role.envKey)
	viper.BindEnv(transport.flagKey, transport.envKey)
	viper.BindEnv(lagLimit.flagKey, lagLimit.envKey)
	viper.BindEnv(leadLimit.flagKey, leadLimit.envKey)
	viper.BindEnv(heartbeat.flagKey, heartbeat.envKey)
	viper.BindEnv(pollInterval.flagKey, pollInterval.envKey)
	viper.BindEnv(videoDuration.flagKey, videoDuration.envKey)
	viper.BindEnv(autoplay.flagKey, autoplay.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)

	viper.SetDefault(serverURL.flagKey, serverURL.defaultValue)
	viper.SetDefault(roomId.flagKey, roomId.defaultValue)
	viper.SetDefault(videoId.flagKey, videoId.defaultValue)
	viper.SetDefault(username.flagKey, username.defaultValue)
	viper.SetDefault(role.flagKey, role.defaultValue)
	viper.SetDefault(transport.flagKey, transport.defaultValue)
	viper.SetDefault(lagLimit.flagKey, lagLimit.defaultValue)
	viper.SetDefault(leadLimit.flagKey, leadLimit.defaultValue)
	viper.SetDefault(heartbeat.flagKey, heartbeat.defaultValue)
	viper.SetDefault(pollInterval.flagKey, pollInterval.defaultValue)
	viper.SetDefault(videoDuration.flagKey, videoDuration.defaultValue)
	viper.SetDefault(autoplay.flagKey, autoplay.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)

	cfg := &config{
		ServerURL: viper.GetString(serverURL.flagKey),
		RoomId:    viper.GetString(roomId.flagKey),
		VideoId:   viper.GetString(videoId.flagKey),
		Username:  viper.GetString(username.flagKey),
		Role:      client.Role(viper.GetString(role.flagKey)),
		Transport: viper.GetString(transport.flagKey),
		Tolerance: playback.Tolerance{
			Lag:  viper.GetFloat64(lagLimit.flagKey),
			Lead: viper.GetFloat64(leadLimit.flagKey),
		},
		Heartbeat:     viper.GetDuration(heartbeat.flagKey),
		PollInterval:  viper.GetDuration(pollInterval.flagKey),
		VideoDuration: viper.GetDuration(videoDuration.flagKey),
		Autoplay:      viper.GetBool(autoplay.flagKey),
		LogLevel:      viper.GetString(logLevel.flagKey),
	}

	if cfg.Role == "" {
		cfg.Role = client.RoleFollower
		if cfg.RoomId == "" {
			cfg.Role = client.RoleHost
		}
	}

	return cfg
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}),
	}

	return slog.New(&h), nil
}

func run(ctx context.Context, cfg *config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	sessionConfig := cfg.sessionConfig()
	if err := sessionConfig.Validate(); err != nil {
		return fmt.Errorf("invalid session config: %w", err)
	}

	c := client.New(cfg.ServerURL, logger)

	var membership client.Membership
	if cfg.RoomId == "" {
		membership, err = c.CreateRoom(ctx, cfg.VideoId, cfg.Username)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "room created", "room_id", membership.RoomId)
	} else {
		membership, err = c.JoinRoom(ctx, cfg.RoomId, cfg.Username)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "room joined", "room_id", membership.RoomId, "participant_id", membership.ParticipantId)

		if cfg.Role == client.RoleHost {
			if err := c.ClaimHost(ctx, membership); err != nil {
				return err
			}
		}
	}

	clock := clockwork.NewRealClock()
	player := simplayer.New(clock, cfg.VideoDuration)
	defer player.Close()

	player.Load()
	if cfg.Role == client.RoleHost && cfg.Autoplay {
		if err := player.Play(); err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
	}

	session := client.NewSession(c, player, membership, clock, logger, sessionConfig)

	return session.Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}
