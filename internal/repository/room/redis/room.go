package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cowatch/server/internal/repository/room"
	"github.com/redis/go-redis/v9"
)

type roomHash struct {
	RoomId            string `redis:"room_id"`
	VideoId           string `redis:"video_id"`
	VideoTitle        string `redis:"video_title"`
	VideoAuthor       string `redis:"video_author"`
	VideoThumbnailUrl string `redis:"video_thumbnail_url"`
	HostUsername      string `redis:"host_username"`
	CreatedAt         int64  `redis:"created_at"`
	ExpiresAt         int64  `redis:"expires_at"`
}

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	roomKey := r.getRoomKey(params.RoomId)
	exists, err := r.rc.Exists(ctx, roomKey).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if exists > 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomAlreadyExists)
		return room.ErrRoomAlreadyExists
	}

	pipe := r.rc.TxPipeline()

	pipe.HSet(ctx, roomKey, map[string]any{
		"room_id":             params.RoomId,
		"video_id":            params.VideoId,
		"video_title":         params.VideoTitle,
		"video_author":        params.VideoAuthor,
		"video_thumbnail_url": params.VideoThumbnailUrl,
		"host_username":       params.HostUsername,
		"created_at":          params.CreatedAt.UnixMilli(),
		"expires_at":          params.ExpiresAt.UnixMilli(),
	})
	pipe.ExpireAt(ctx, roomKey, params.ExpiresAt)

	playerKey := r.getPlayerKey(params.RoomId)
	pipe.HSet(ctx, playerKey, map[string]any{
		"status":     params.Player.Status,
		"time":       params.Player.Time,
		"seq":        params.Player.Seq,
		"updated_at": params.Player.UpdatedAt,
	})
	pipe.ExpireAt(ctx, playerKey, params.ExpiresAt)

	pipe.ZAdd(ctx, roomsIndexKey, redis.Z{
		Score:  float64(params.CreatedAt.UnixMilli()),
		Member: params.RoomId,
	})

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	var h roomHash
	if err := r.rc.HGetAll(ctx, r.getRoomKey(roomId)).Scan(&h); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	if h.RoomId == "" {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.Room{}, room.ErrRoomNotFound
	}

	return room.Room{
		RoomId:            h.RoomId,
		VideoId:           h.VideoId,
		VideoTitle:        h.VideoTitle,
		VideoAuthor:       h.VideoAuthor,
		VideoThumbnailUrl: h.VideoThumbnailUrl,
		HostUsername:      h.HostUsername,
		CreatedAt:         time.UnixMilli(h.CreatedAt),
		ExpiresAt:         time.UnixMilli(h.ExpiresAt),
	}, nil
}

// GetRoomIds returns ids of live rooms, newest first. Ids of expired rooms
// are dropped from the index on the way.
func (r repo) GetRoomIds(ctx context.Context) ([]string, error) {
	r.logger.DebugContext(ctx, "called")

	roomIds, err := r.rc.ZRevRange(ctx, roomsIndexKey, 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	if len(roomIds) == 0 {
		return []string{}, nil
	}

	pipe := r.rc.Pipeline()
	existsCmds := make([]*redis.IntCmd, 0, len(roomIds))
	for _, roomId := range roomIds {
		existsCmds = append(existsCmds, pipe.Exists(ctx, r.getRoomKey(roomId)))
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	live := make([]string, 0, len(roomIds))
	stale := make([]any, 0)
	for i, cmd := range existsCmds {
		if cmd.Val() > 0 {
			live = append(live, roomIds[i])
		} else {
			stale = append(stale, roomIds[i])
		}
	}

	if len(stale) > 0 {
		if err := r.rc.ZRem(ctx, roomsIndexKey, stale...).Err(); err != nil {
			r.logger.WarnContext(ctx, "failed to drop expired rooms from index", "error", err)
		}
	}

	return live, nil
}

func (r repo) RemoveRoom(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	participantIds, err := r.rc.ZRange(ctx, r.getParticipantListKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	keys := []string{
		r.getRoomKey(roomId),
		r.getPlayerKey(roomId),
		r.getParticipantListKey(roomId),
		r.getMessagesKey(roomId),
		r.getReactionsKey(roomId),
		r.getHostKey(roomId),
	}
	for _, participantId := range participantIds {
		keys = append(keys, r.getParticipantKey(roomId, participantId))
	}

	pipe := r.rc.TxPipeline()
	delCmd := pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, roomsIndexKey, roomId)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if delCmd.Val() == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.ErrRoomNotFound
	}

	return nil
}

func (r repo) IsRoomExists(ctx context.Context, roomId string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getRoomKey(roomId)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return res > 0, nil
}

func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
