package redis

import (
	"context"
	"fmt"

	"github.com/cowatch/server/internal/repository/room"
)

func (r repo) GetPlayer(ctx context.Context, roomId string) (room.Player, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	res, err := r.rc.HGetAll(ctx, r.getPlayerKey(roomId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	if len(res) == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrPlayerNotFound)
		return room.Player{}, room.ErrPlayerNotFound
	}

	return room.Player{
		Status:    int(r.fieldToInt64(res["status"])),
		Time:      r.fieldToFloat64(res["time"]),
		Seq:       r.fieldToInt64(res["seq"]),
		UpdatedAt: r.fieldToInt64(res["updated_at"]),
	}, nil
}

// UpdatePlayer overwrites the player state and stamps it with the next
// sequence number of the room.
func (r repo) UpdatePlayer(ctx context.Context, params *room.UpdatePlayerParams) (room.Player, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	expiresAt, err := r.getRoomExpireAt(ctx, params.RoomId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Player{}, err
	}

	playerKey := r.getPlayerKey(params.RoomId)
	updatedAt := params.UpdatedAt.UnixMilli()

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, playerKey,
		"status", params.Status,
		"time", params.Time,
		"updated_at", updatedAt,
	)
	seqCmd := pipe.HIncrBy(ctx, playerKey, "seq", 1)
	pipe.ExpireAt(ctx, playerKey, expiresAt)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Player{}, fmt.Errorf("failed to update player: %w", err)
	}

	return room.Player{
		Status:    params.Status,
		Time:      params.Time,
		Seq:       seqCmd.Val(),
		UpdatedAt: updatedAt,
	}, nil
}
