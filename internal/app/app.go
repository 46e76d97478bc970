package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cowatch/server/internal/controller"
	roomRepository "github.com/cowatch/server/internal/repository/room"
	roomRedis "github.com/cowatch/server/internal/repository/room/redis"
	"github.com/cowatch/server/internal/repository/room/sqlite"
	"github.com/cowatch/server/internal/service/room"
	"github.com/cowatch/server/pkg/ctxlogger"
	"github.com/cowatch/server/pkg/redisclient"
	"github.com/cowatch/server/pkg/ytvideodata"
	"github.com/jonboulle/clockwork"
)

const (
	StoreRedis  = "redis"
	StoreSqlite = "sqlite"
)

type AppConfig struct {
	Secret            string        `json:"-"`
	AdminToken        string        `json:"-"`
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	LogLevel          string        `json:"log_level"`
	Store             string        `json:"store"`
	SqlitePath        string        `json:"sqlite_path"`
	RoomTTL           time.Duration `json:"room_ttl"`
	ReactionTTL       time.Duration `json:"reaction_ttl"`
	HostLeaseTTL      time.Duration `json:"host_lease_ttl"`
	MessagesLimit     int           `json:"messages_limit"`
	ReactionsLimit    int           `json:"reactions_limit"`
	ParticipantsLimit int           `json:"participants_limit"`
	CacheSize         int           `json:"cache_size"`
	CacheTTL          time.Duration `json:"cache_ttl"`
	FeedInterval      time.Duration `json:"feed_interval"`
	PurgeInterval     time.Duration `json:"purge_interval"`
	FetchVideoData    bool          `json:"fetch_video_data"`
	RedisPort         int           `json:"redis_port"`
	RedisHost         string        `json:"redis_host"`
	RedisPassword     string        `json:"-"`
	RedisDB           int           `json:"redis_db"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return errors.New("secret must not be empty")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", cfg.Port)
	}
	if cfg.Store != StoreRedis && cfg.Store != StoreSqlite {
		return fmt.Errorf("store must be %q or %q, got %q", StoreRedis, StoreSqlite, cfg.Store)
	}
	if cfg.Store == StoreSqlite && cfg.SqlitePath == "" {
		return errors.New("sqlite path must not be empty")
	}
	if cfg.RoomTTL <= 0 || cfg.ReactionTTL <= 0 || cfg.HostLeaseTTL <= 0 {
		return errors.New("room, reaction and host lease ttl must be positive")
	}
	if cfg.MessagesLimit < 1 {
		return errors.New("messages limit must be greater than 0")
	}
	if cfg.ReactionsLimit < 1 {
		return errors.New("reactions limit must be greater than 0")
	}
	if cfg.ParticipantsLimit < 1 {
		return errors.New("participants limit must be greater than 0")
	}
	if cfg.FeedInterval <= 0 {
		return errors.New("feed interval must be positive")
	}
	if cfg.Store == StoreRedis && cfg.RedisDB < 0 {
		return errors.New("redis db must not be negative")
	}
	if cfg.Store == StoreSqlite && cfg.PurgeInterval <= 0 {
		return errors.New("purge interval must be positive")
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

// openRoomRepo opens the configured store. The returned func releases it.
func openRoomRepo(ctx context.Context, cfg *AppConfig, logger *slog.Logger, clock clockwork.Clock) (roomRepository.Repository, func(), error) {
	switch cfg.Store {
	case StoreSqlite:
		store, err := sqlite.Open(cfg.SqlitePath, logger, clock)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}

		purgeCtx, stopPurge := context.WithCancel(ctx)
		go purgeExpiredRooms(purgeCtx, store, clock, cfg.PurgeInterval, logger)

		return store, func() {
			stopPurge()
			store.Close()
		}, nil
	default:
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Port:     cfg.RedisPort,
			Host:     cfg.RedisHost,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
		}

		return roomRedis.NewRepo(rc, logger, clock), func() { rc.Close() }, nil
	}
}

func purgeExpiredRooms(ctx context.Context, store *sqlite.Store, clock clockwork.Clock, interval time.Duration, logger *slog.Logger) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "failed to purge expired rooms", "error", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "purged expired rooms", "count", n)
			}
		}
	}
}

type videoDataGetter interface {
	Get(ctx context.Context, videoId string) (*ytvideodata.VideoData, error)
}

func newHandler(roomRepo roomRepository.Repository, cfg *AppConfig, logger *slog.Logger, clock clockwork.Clock) http.Handler {
	var videoData videoDataGetter
	if cfg.FetchVideoData {
		videoData = ytvideodata.New()
	}

	roomService := room.NewService(roomRepo, videoData, clock, logger, &room.Config{
		Secret:            cfg.Secret,
		RoomTTL:           cfg.RoomTTL,
		ReactionTTL:       cfg.ReactionTTL,
		HostLeaseTTL:      cfg.HostLeaseTTL,
		MessagesLimit:     cfg.MessagesLimit,
		ReactionsLimit:    cfg.ReactionsLimit,
		ParticipantsLimit: cfg.ParticipantsLimit,
		CacheSize:         cfg.CacheSize,
		CacheTTL:          cfg.CacheTTL,
	})

	return controller.NewController(roomService, clock, logger, &controller.Config{
		AdminToken:   cfg.AdminToken,
		FeedInterval: cfg.FeedInterval,
	}).GetMux()
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	clock := clockwork.NewRealClock()

	roomRepo, closeRepo, err := openRoomRepo(ctx, cfg, logger, clock)
	if err != nil {
		return err
	}
	defer closeRepo()

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: newHandler(roomRepo, cfg, logger, clock),
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "store", cfg.Store)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
