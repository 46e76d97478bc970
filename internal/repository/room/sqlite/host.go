package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cowatch/server/internal/repository/room"
)

func (s *Store) AcquireHostLease(ctx context.Context, params *room.AcquireHostLeaseParams) (room.HostLease, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	now := s.now()
	expiresAt := now + params.TTL.Milliseconds()

	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET host_id = ?, host_expires_at = ?
		WHERE room_id = ? AND expires_at > ?
			AND (host_id = '' OR host_id = ? OR host_expires_at <= ?)`,
		params.ParticipantId, expiresAt, params.RoomId, now, params.ParticipantId, now,
	)
	if err != nil {
		return room.HostLease{}, fmt.Errorf("failed to acquire host lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return room.HostLease{}, err
	}

	if n == 0 {
		if err := s.requireRoom(ctx, params.RoomId); err != nil {
			return room.HostLease{}, err
		}
		s.logger.DebugContext(ctx, "returned", "error", room.ErrHostLeaseTaken)
		return room.HostLease{}, room.ErrHostLeaseTaken
	}

	return room.HostLease{
		ParticipantId: params.ParticipantId,
		ExpiresAt:     time.UnixMilli(expiresAt),
	}, nil
}

func (s *Store) GetHostLease(ctx context.Context, roomId string) (room.HostLease, error) {
	s.logger.DebugContext(ctx, "called", "room_id", roomId)

	now := s.now()

	var (
		hostId    string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT host_id, host_expires_at FROM rooms
		WHERE room_id = ? AND expires_at > ?`,
		roomId, now,
	).Scan(&hostId, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return room.HostLease{}, room.ErrHostLeaseNotFound
		}
		return room.HostLease{}, fmt.Errorf("failed to get host lease: %w", err)
	}

	if hostId == "" || expiresAt <= now {
		return room.HostLease{}, room.ErrHostLeaseNotFound
	}

	return room.HostLease{
		ParticipantId: hostId,
		ExpiresAt:     time.UnixMilli(expiresAt),
	}, nil
}

func (s *Store) ReleaseHostLease(ctx context.Context, params *room.ReleaseHostLeaseParams) error {
	s.logger.DebugContext(ctx, "called", "params", params)

	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET host_id = '', host_expires_at = 0
		WHERE room_id = ? AND host_id = ? AND host_expires_at > ?`,
		params.RoomId, params.ParticipantId, s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to release host lease: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return room.ErrHostLeaseNotFound
	}

	return nil
}
