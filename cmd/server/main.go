package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cowatch/server/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	secret = configVar[string]{
		envKey:       "SERVER_SECRET",
		flagKey:      "secret",
		defaultValue: "",
	}
	adminToken = configVar[string]{
		envKey:       "SERVER_ADMIN_TOKEN",
		flagKey:      "admin-token",
		defaultValue: "",
	}
	port = configVar[int]{
		envKey:       "SERVER_PORT",
		flagKey:      "port",
		defaultValue: 80,
	}
	host = configVar[string]{
		envKey:       "SERVER_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	store = configVar[string]{
		envKey:       "SERVER_STORE",
		flagKey:      "store",
		defaultValue: app.StoreRedis,
	}
	sqlitePath = configVar[string]{
		envKey:       "SERVER_SQLITE_PATH",
		flagKey:      "sqlite-path",
		defaultValue: "cowatch.db",
	}
	roomTTL = configVar[time.Duration]{
		envKey:       "SERVER_ROOM_TTL",
		flagKey:      "room-ttl",
		defaultValue: 24 * time.Hour,
	}
	reactionTTL = configVar[time.Duration]{
		envKey:       "SERVER_REACTION_TTL",
		flagKey:      "reaction-ttl",
		defaultValue: 4 * time.Second,
	}
	hostLeaseTTL = configVar[time.Duration]{
		envKey:       "SERVER_HOST_LEASE_TTL",
		flagKey:      "host-lease-ttl",
		defaultValue: 10 * time.Second,
	}
	messagesLimit = configVar[int]{
		envKey:       "SERVER_MESSAGES_LIMIT",
		flagKey:      "messages-limit",
		defaultValue: 200,
	}
	reactionsLimit = configVar[int]{
		envKey:       "SERVER_REACTIONS_LIMIT",
		flagKey:      "reactions-limit",
		defaultValue: 50,
	}
	participantsLimit = configVar[int]{
		envKey:       "SERVER_PARTICIPANTS_LIMIT",
		flagKey:      "participants-limit",
		defaultValue: 50,
	}
	cacheSize = configVar[int]{
		envKey:       "SERVER_CACHE_SIZE",
		flagKey:      "cache-size",
		defaultValue: 1024,
	}
	cacheTTL = configVar[time.Duration]{
		envKey:       "SERVER_CACHE_TTL",
		flagKey:      "cache-ttl",
		defaultValue: time.Second,
	}
	feedInterval = configVar[time.Duration]{
		envKey:       "SERVER_FEED_INTERVAL",
		flagKey:      "feed-interval",
		defaultValue: time.Second,
	}
	purgeInterval = configVar[time.Duration]{
		envKey:       "SERVER_PURGE_INTERVAL",
		flagKey:      "purge-interval",
		defaultValue: time.Minute,
	}
	fetchVideoData = configVar[bool]{
		envKey:       "SERVER_FETCH_VIDEO_DATA",
		flagKey:      "fetch-video-data",
		defaultValue: true,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
	redisDB = configVar[int]{
		envKey:       "REDIS_DB",
		flagKey:      "redis-db",
		defaultValue: 0,
	}
)

func loadAppConfig() *app.AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	pflag.String(secret.flagKey, secret.defaultValue, "Secret signing participant tokens")
	pflag.String(adminToken.flagKey, adminToken.defaultValue, "Bearer token of the admin endpoints, empty disables them")
	pflag.Int(port.flagKey, port.defaultValue, "Server port")
	pflag.String(host.flagKey, host.defaultValue, "Server host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.String(store.flagKey, store.defaultValue, "Room store: redis or sqlite")
	pflag.String(sqlitePath.flagKey, sqlitePath.defaultValue, "Sqlite database path")
	pflag.Duration(roomTTL.flagKey, roomTTL.defaultValue, "Room lifetime")
	pflag.Duration(reactionTTL.flagKey, reactionTTL.defaultValue, "How long a reaction stays visible")
	pflag.Duration(hostLeaseTTL.flagKey, hostLeaseTTL.defaultValue, "Host lease lifetime without publishes")
	pflag.Int(messagesLimit.flagKey, messagesLimit.defaultValue, "Maximum number of chat messages kept per room")
	pflag.Int(reactionsLimit.flagKey, reactionsLimit.defaultValue, "Maximum number of reactions kept per room")
	pflag.Int(participantsLimit.flagKey, participantsLimit.defaultValue, "Maximum number of participants in the room")
	pflag.Int(cacheSize.flagKey, cacheSize.defaultValue, "Number of cached room snapshots")
	pflag.Duration(cacheTTL.flagKey, cacheTTL.defaultValue, "Room snapshot cache ttl")
	pflag.Duration(feedInterval.flagKey, feedInterval.defaultValue, "Websocket feed check interval")
	pflag.Duration(purgeInterval.flagKey, purgeInterval.defaultValue, "Expired rooms purge interval (sqlite)")
	pflag.Bool(fetchVideoData.flagKey, fetchVideoData.defaultValue, "Fetch video title and thumbnail from YouTube")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Int(redisDB.flagKey, redisDB.defaultValue, "Redis database index")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(secret.flagKey, secret.envKey)
	viper.BindEnv(adminToken.flagKey, adminToken.envKey)
	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(store.flagKey, store.envKey)
	viper.BindEnv(sqlitePath.flagKey, sqlitePath.envKey)
	viper.BindEnv(roomTTL.flagKey, roomTTL.envKey)
	viper.BindEnv(reactionTTL.flagKey, reactionTTL.envKey)
	viper.BindEnv(hostLeaseTTL.flagKey, hostLeaseTTL.envKey)
	viper.BindEnv(messagesLimit.flagKey, messagesLimit.envKey)
	viper.BindEnv(reactionsLimit.flagKey, reactionsLimit.envKey)
	viper.BindEnv(participantsLimit.flagKey, participantsLimit.envKey)
	viper.BindEnv(cacheSize.flagKey, cacheSize.envKey)
	viper.BindEnv(cacheTTL.flagKey, cacheTTL.envKey)
	viper.BindEnv(feedInterval.flagKey, feedInterval.envKey)
	viper.BindEnv(purgeInterval.flagKey, purgeInterval.envKey)
	viper.BindEnv(fetchVideoData.flagKey, fetchVideoData.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)
	viper.BindEnv(redisDB.flagKey, redisDB.envKey)

	viper.SetDefault(secret.flagKey, secret.defaultValue)
	viper.SetDefault(adminToken.flagKey, adminToken.defaultValue)
	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(store.flagKey, store.defaultValue)
	viper.SetDefault(sqlitePath.flagKey, sqlitePath.defaultValue)
	viper.SetDefault(roomTTL.flagKey, roomTTL.defaultValue)
	viper.SetDefault(reactionTTL.flagKey, reactionTTL.defaultValue)
	viper.SetDefault(hostLeaseTTL.flagKey, hostLeaseTTL.defaultValue)
	viper.SetDefault(messagesLimit.flagKey, messagesLimit.defaultValue)
	viper.SetDefault(reactionsLimit.flagKey, reactionsLimit.defaultValue)
	viper.SetDefault(participantsLimit.flagKey, participantsLimit.defaultValue)
	viper.SetDefault(cacheSize.flagKey, cacheSize.defaultValue)
	viper.SetDefault(cacheTTL.flagKey, cacheTTL.defaultValue)
	viper.SetDefault(feedInterval.flagKey, feedInterval.defaultValue)
	viper.SetDefault(purgeInterval.flagKey, purgeInterval.defaultValue)
	viper.SetDefault(fetchVideoData.flagKey, fetchVideoData.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)
	viper.SetDefault(redisDB.flagKey, redisDB.defaultValue)

	config := &app.AppConfig{
		Secret:            viper.GetString(secret.flagKey),
		AdminToken:        viper.GetString(adminToken.flagKey),
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		Store:             viper.GetString(store.flagKey),
		SqlitePath:        viper.GetString(sqlitePath.flagKey),
		RoomTTL:           viper.GetDuration(roomTTL.flagKey),
		ReactionTTL:       viper.GetDuration(reactionTTL.flagKey),
		HostLeaseTTL:      viper.GetDuration(hostLeaseTTL.flagKey),
		MessagesLimit:     viper.GetInt(messagesLimit.flagKey),
		ReactionsLimit:    viper.GetInt(reactionsLimit.flagKey),
		ParticipantsLimit: viper.GetInt(participantsLimit.flagKey),
		CacheSize:         viper.GetInt(cacheSize.flagKey),
		CacheTTL:          viper.GetDuration(cacheTTL.flagKey),
		FeedInterval:      viper.GetDuration(feedInterval.flagKey),
		PurgeInterval:     viper.GetDuration(purgeInterval.flagKey),
		FetchVideoData:    viper.GetBool(fetchVideoData.flagKey),
		RedisPort:         viper.GetInt(redisPort.flagKey),
		RedisHost:         viper.GetString(redisHost.flagKey),
		RedisPassword:     viper.GetString(redisPassword.flagKey),
		RedisDB:           viper.GetInt(redisDB.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	log.Fatal(app.Run(ctx, appConfig))
}
