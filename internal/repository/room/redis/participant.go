package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cowatch/server/internal/repository/room"
	"github.com/redis/go-redis/v9"
)

type participantHash struct {
	Id       string `redis:"id"`
	Username string `redis:"username"`
	JoinedAt int64  `redis:"joined_at"`
}

func (r repo) SetParticipant(ctx context.Context, params *room.SetParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	expiresAt, err := r.getRoomExpireAt(ctx, params.RoomId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	pipe := r.rc.TxPipeline()

	participantKey := r.getParticipantKey(params.RoomId, params.ParticipantId)
	pipe.HSet(ctx, participantKey, map[string]any{
		"id":        params.ParticipantId,
		"username":  params.Username,
		"joined_at": params.JoinedAt.UnixMilli(),
	})
	pipe.ExpireAt(ctx, participantKey, expiresAt)

	participantListKey := r.getParticipantListKey(params.RoomId)
	pipe.ZAdd(ctx, participantListKey, redis.Z{
		Score:  float64(params.JoinedAt.UnixMilli()),
		Member: params.ParticipantId,
	})
	pipe.ExpireAt(ctx, participantListKey, expiresAt)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to set participant: %w", err)
	}

	return nil
}

func (r repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	pipe := r.rc.TxPipeline()
	remCmd := pipe.ZRem(ctx, r.getParticipantListKey(params.RoomId), params.ParticipantId)
	pipe.Del(ctx, r.getParticipantKey(params.RoomId, params.ParticipantId))

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if remCmd.Val() == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.ErrParticipantNotFound
	}

	return nil
}

func (r repo) GetParticipant(ctx context.Context, params *room.GetParticipantParams) (room.Participant, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	var h participantHash
	if err := r.rc.HGetAll(ctx, r.getParticipantKey(params.RoomId, params.ParticipantId)).Scan(&h); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Participant{}, err
	}

	if h.Id == "" {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.Participant{}, room.ErrParticipantNotFound
	}

	return room.Participant{
		Id:       h.Id,
		Username: h.Username,
		JoinedAt: time.UnixMilli(h.JoinedAt),
	}, nil
}

// GetParticipants returns participants in join order.
func (r repo) GetParticipants(ctx context.Context, roomId string) ([]room.Participant, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	participantIds, err := r.rc.ZRange(ctx, r.getParticipantListKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(participantIds))
	for _, participantId := range participantIds {
		cmds = append(cmds, pipe.HGetAll(ctx, r.getParticipantKey(roomId, participantId)))
	}

	if len(cmds) > 0 {
		if err := r.executePipe(ctx, pipe); err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}
	}

	participants := make([]room.Participant, 0, len(cmds))
	for _, cmd := range cmds {
		var h participantHash
		if err := cmd.Scan(&h); err != nil {
			r.logger.DebugContext(ctx, "returned", "error", err)
			return nil, err
		}

		if h.Id == "" {
			continue
		}

		participants = append(participants, room.Participant{
			Id:       h.Id,
			Username: h.Username,
			JoinedAt: time.UnixMilli(h.JoinedAt),
		})
	}

	return participants, nil
}

func (r repo) GetParticipantsCount(ctx context.Context, roomId string) (int, error) {
	count, err := r.rc.ZCard(ctx, r.getParticipantListKey(roomId)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}

	return int(count), nil
}
