package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cowatch/server/internal/repository/room"
)

func (s *Store) GetPlayer(ctx context.Context, roomId string) (room.Player, error) {
	s.logger.DebugContext(ctx, "called", "room_id", roomId)

	var p room.Player
	err := s.db.QueryRowContext(ctx, `
		SELECT player_status, player_time, player_seq, player_updated_at
		FROM rooms
		WHERE room_id = ? AND expires_at > ?`,
		roomId, s.now(),
	).Scan(&p.Status, &p.Time, &p.Seq, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return room.Player{}, room.ErrPlayerNotFound
		}
		return room.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	return p, nil
}

func (s *Store) UpdatePlayer(ctx context.Context, params *room.UpdatePlayerParams) (room.Player, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	var p room.Player
	err := s.db.QueryRowContext(ctx, `
		UPDATE rooms SET
			player_status = ?,
			player_time = ?,
			player_seq = player_seq + 1,
			player_updated_at = ?
		WHERE room_id = ? AND expires_at > ?
		RETURNING player_status, player_time, player_seq, player_updated_at`,
		params.Status, params.Time, params.UpdatedAt.UnixMilli(), params.RoomId, s.now(),
	).Scan(&p.Status, &p.Time, &p.Seq, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return room.Player{}, room.ErrRoomNotFound
		}
		s.logger.DebugContext(ctx, "returned", "error", err)
		return room.Player{}, fmt.Errorf("failed to update player: %w", err)
	}

	return p, nil
}
