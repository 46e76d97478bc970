package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cowatch/server/internal/repository/room"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

var _ room.Repository = (*Store)(nil)

// Store keeps rooms in a single sqlite database. Expired rooms are invisible
// to reads and are deleted by PurgeExpired.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	clock  clockwork.Clock
}

func Open(path string, logger *slog.Logger, clock clockwork.Clock) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// foreign_keys is a per-connection pragma
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger, clock: clock}
	if err := s.EnsureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) now() int64 {
	return s.clock.Now().UnixMilli()
}

// PurgeExpired deletes every expired room and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE expires_at <= ?`, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired rooms: %w", err)
	}

	return res.RowsAffected()
}

func (s *Store) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	s.logger.DebugContext(ctx, "called", "params", params)

	// an expired row with the same id is replaced
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = ? AND expires_at <= ?`, params.RoomId, s.now()); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (
			room_id, video_id, video_title, video_author, video_thumbnail_url,
			host_username, created_at, expires_at,
			player_status, player_time, player_seq, player_updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(room_id) DO NOTHING`,
		params.RoomId, params.VideoId, params.VideoTitle, params.VideoAuthor, params.VideoThumbnailUrl,
		params.HostUsername, params.CreatedAt.UnixMilli(), params.ExpiresAt.UnixMilli(),
		params.Player.Status, params.Player.Time, params.Player.Seq, params.Player.UpdatedAt,
	)
	if err != nil {
		s.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to set room: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		s.logger.DebugContext(ctx, "returned", "error", room.ErrRoomAlreadyExists)
		return room.ErrRoomAlreadyExists
	}

	return nil
}

func (s *Store) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	s.logger.DebugContext(ctx, "called", "room_id", roomId)

	var (
		r         room.Room
		createdAt int64
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT room_id, video_id, video_title, video_author, video_thumbnail_url,
			host_username, created_at, expires_at
		FROM rooms
		WHERE room_id = ? AND expires_at > ?`,
		roomId, s.now(),
	).Scan(&r.RoomId, &r.VideoId, &r.VideoTitle, &r.VideoAuthor, &r.VideoThumbnailUrl,
		&r.HostUsername, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return room.Room{}, room.ErrRoomNotFound
		}
		s.logger.DebugContext(ctx, "returned", "error", err)
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	r.CreatedAt = time.UnixMilli(createdAt)
	r.ExpiresAt = time.UnixMilli(expiresAt)

	return r, nil
}

func (s *Store) GetRoomIds(ctx context.Context) ([]string, error) {
	s.logger.DebugContext(ctx, "called")

	rows, err := s.db.QueryContext(ctx, `
		SELECT room_id FROM rooms
		WHERE expires_at > ?
		ORDER BY created_at DESC`, s.now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roomIds := []string{}
	for rows.Next() {
		var roomId string
		if err := rows.Scan(&roomId); err != nil {
			return nil, err
		}
		roomIds = append(roomIds, roomId)
	}

	return roomIds, rows.Err()
}

func (s *Store) RemoveRoom(ctx context.Context, roomId string) error {
	s.logger.DebugContext(ctx, "called", "room_id", roomId)

	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = ?`, roomId)
	if err != nil {
		s.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to remove room: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return room.ErrRoomNotFound
	}

	return nil
}

func (s *Store) IsRoomExists(ctx context.Context, roomId string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM rooms WHERE room_id = ? AND expires_at > ?)`,
		roomId, s.now(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return exists, nil
}

func (s *Store) requireRoom(ctx context.Context, roomId string) error {
	exists, err := s.IsRoomExists(ctx, roomId)
	if err != nil {
		return err
	}

	if !exists {
		return room.ErrRoomNotFound
	}

	return nil
}
