package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cowatch/server/internal/repository/room"
	"github.com/redis/go-redis/v9"
)

const roomsIndexKey = "rooms"

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) getPlayerKey(roomId string) string {
	return "room:" + roomId + ":player"
}

func (r repo) getParticipantListKey(roomId string) string {
	return "room:" + roomId + ":participants"
}

func (r repo) getParticipantKey(roomId, participantId string) string {
	return "room:" + roomId + ":participant:" + participantId
}

func (r repo) getMessagesKey(roomId string) string {
	return "room:" + roomId + ":messages"
}

func (r repo) getReactionsKey(roomId string) string {
	return "room:" + roomId + ":reactions"
}

func (r repo) getHostKey(roomId string) string {
	return "room:" + roomId + ":host"
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

// getRoomExpireAt returns the moment every key of the room expires. It doubles
// as the existence check for writes.
func (r repo) getRoomExpireAt(ctx context.Context, roomId string) (time.Time, error) {
	ms, err := r.rc.HGet(ctx, r.getRoomKey(roomId), "expires_at").Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, room.ErrRoomNotFound
		}
		return time.Time{}, fmt.Errorf("failed to get room expiration: %w", err)
	}

	return time.UnixMilli(ms), nil
}

func (r repo) fieldToInt64(field string) int64 {
	i, _ := strconv.ParseInt(field, 10, 64)
	return i
}

func (r repo) fieldToFloat64(field string) float64 {
	f, _ := strconv.ParseFloat(field, 64)
	return f
}
