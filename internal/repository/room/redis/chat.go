package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cowatch/server/internal/repository/room"
)

func (r repo) AddMessage(ctx context.Context, params *room.AddMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	data, err := json.Marshal(params.Message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := r.pushCapped(ctx, params.RoomId, r.getMessagesKey(params.RoomId), data, params.Limit); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetMessages(ctx context.Context, roomId string) ([]room.Message, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	items, err := r.rc.LRange(ctx, r.getMessagesKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	messages := make([]room.Message, 0, len(items))
	for _, item := range items {
		var message room.Message
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			r.logger.WarnContext(ctx, "skipping malformed message", "error", err)
			continue
		}
		messages = append(messages, message)
	}

	return messages, nil
}

func (r repo) AddReaction(ctx context.Context, params *room.AddReactionParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	data, err := json.Marshal(params.Reaction)
	if err != nil {
		return fmt.Errorf("failed to marshal reaction: %w", err)
	}

	if err := r.pushCapped(ctx, params.RoomId, r.getReactionsKey(params.RoomId), data, params.Limit); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// GetReactions returns reactions created at or after params.Since.
func (r repo) GetReactions(ctx context.Context, params *room.GetReactionsParams) ([]room.Reaction, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	items, err := r.rc.LRange(ctx, r.getReactionsKey(params.RoomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	since := params.Since.UnixMilli()
	reactions := make([]room.Reaction, 0, len(items))
	for _, item := range items {
		var reaction room.Reaction
		if err := json.Unmarshal([]byte(item), &reaction); err != nil {
			r.logger.WarnContext(ctx, "skipping malformed reaction", "error", err)
			continue
		}
		if reaction.CreatedAt < since {
			continue
		}
		reactions = append(reactions, reaction)
	}

	return reactions, nil
}

func (r repo) pushCapped(ctx context.Context, roomId, key string, value []byte, limit int) error {
	expiresAt, err := r.getRoomExpireAt(ctx, roomId)
	if err != nil {
		return err
	}

	pipe := r.rc.TxPipeline()
	pipe.RPush(ctx, key, value)
	if limit > 0 {
		pipe.LTrim(ctx, key, int64(-limit), -1)
	}
	pipe.ExpireAt(ctx, key, expiresAt)

	return r.executePipe(ctx, pipe)
}
