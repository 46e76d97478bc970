package sqlite

import (
	"context"
	"fmt"

	"github.com/cowatch/server/internal/repository/room"
)

func (s *Store) AddMessage(ctx context.Context, params *room.AddMessageParams) (err error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	if err := s.requireRoom(ctx, params.RoomId); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	m := params.Message
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, participant_id, username, message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.Id, params.RoomId, m.ParticipantId, m.Username, m.Message, m.Timestamp,
	); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	if params.Limit > 0 {
		if _, err = tx.ExecContext(ctx, `
			DELETE FROM messages
			WHERE room_id = ? AND seq NOT IN (
				SELECT seq FROM messages WHERE room_id = ? ORDER BY seq DESC LIMIT ?
			)`, params.RoomId, params.RoomId, params.Limit,
		); err != nil {
			return fmt.Errorf("failed to trim messages: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetMessages(ctx context.Context, roomId string) ([]room.Message, error) {
	s.logger.DebugContext(ctx, "called", "room_id", roomId)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_id, username, message, timestamp
		FROM messages
		WHERE room_id = ?
		ORDER BY seq`, roomId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []room.Message{}
	for rows.Next() {
		var m room.Message
		if err := rows.Scan(&m.Id, &m.ParticipantId, &m.Username, &m.Message, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (s *Store) AddReaction(ctx context.Context, params *room.AddReactionParams) (err error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	if err := s.requireRoom(ctx, params.RoomId); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	re := params.Reaction
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO reactions (id, room_id, emoji, x, y, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		re.Id, params.RoomId, re.Emoji, re.X, re.Y, re.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}

	if params.Limit > 0 {
		if _, err = tx.ExecContext(ctx, `
			DELETE FROM reactions
			WHERE room_id = ? AND seq NOT IN (
				SELECT seq FROM reactions WHERE room_id = ? ORDER BY seq DESC LIMIT ?
			)`, params.RoomId, params.RoomId, params.Limit,
		); err != nil {
			return fmt.Errorf("failed to trim reactions: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) GetReactions(ctx context.Context, params *room.GetReactionsParams) ([]room.Reaction, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, emoji, x, y, created_at
		FROM reactions
		WHERE room_id = ? AND created_at >= ?
		ORDER BY seq`, params.RoomId, params.Since.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reactions := []room.Reaction{}
	for rows.Next() {
		var re room.Reaction
		if err := rows.Scan(&re.Id, &re.Emoji, &re.X, &re.Y, &re.CreatedAt); err != nil {
			return nil, err
		}
		reactions = append(reactions, re)
	}

	return reactions, rows.Err()
}
