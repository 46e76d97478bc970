package redis

import (
	"log/slog"

	"github.com/cowatch/server/internal/repository/room"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

var _ room.Repository = (*repo)(nil)

type repo struct {
	rc                 *redis.Client
	logger             *slog.Logger
	clock              clockwork.Clock
	acquireLeaseScript *redis.Script
	releaseLeaseScript *redis.Script
}

// NewRepo returns the redis store. Key expiry is kept by redis; clock only
// dates the leases it reports.
func NewRepo(rc *redis.Client, logger *slog.Logger, clock clockwork.Clock) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
		clock:  clock,
		acquireLeaseScript: redis.NewScript(`
			local holder = redis.call('GET', KEYS[1])
			if holder == false or holder == ARGV[1] then
				redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
				return ARGV[1]
			end
			return holder
		`),
		releaseLeaseScript: redis.NewScript(`
			if redis.call('GET', KEYS[1]) == ARGV[1] then
				return redis.call('DEL', KEYS[1])
			end
			return 0
		`),
	}
}
