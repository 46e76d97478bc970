package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cowatch/server/internal/repository/room"
)

func (s *Store) SetParticipant(ctx context.Context, params *room.SetParticipantParams) error {
	s.logger.DebugContext(ctx, "called", "params", params)

	if err := s.requireRoom(ctx, params.RoomId); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (room_id, participant_id, username, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(room_id, participant_id) DO UPDATE SET
			username=excluded.username`,
		params.RoomId, params.ParticipantId, params.Username, params.JoinedAt.UnixMilli(),
	)
	if err != nil {
		s.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to set participant: %w", err)
	}

	return nil
}

func (s *Store) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	s.logger.DebugContext(ctx, "called", "params", params)

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM participants WHERE room_id = ? AND participant_id = ?`,
		params.RoomId, params.ParticipantId,
	)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return room.ErrParticipantNotFound
	}

	return nil
}

func (s *Store) GetParticipant(ctx context.Context, params *room.GetParticipantParams) (room.Participant, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	var (
		p        room.Participant
		joinedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT p.participant_id, p.username, p.joined_at
		FROM participants p
		JOIN rooms r ON r.room_id = p.room_id
		WHERE p.room_id = ? AND p.participant_id = ? AND r.expires_at > ?`,
		params.RoomId, params.ParticipantId, s.now(),
	).Scan(&p.Id, &p.Username, &joinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return room.Participant{}, room.ErrParticipantNotFound
		}
		return room.Participant{}, fmt.Errorf("failed to get participant: %w", err)
	}

	p.JoinedAt = time.UnixMilli(joinedAt)
	return p, nil
}

func (s *Store) GetParticipants(ctx context.Context, roomId string) ([]room.Participant, error) {
	s.logger.DebugContext(ctx, "called", "room_id", roomId)

	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, username, joined_at
		FROM participants
		WHERE room_id = ?
		ORDER BY joined_at, participant_id`, roomId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []room.Participant{}
	for rows.Next() {
		var (
			p        room.Participant
			joinedAt int64
		)
		if err := rows.Scan(&p.Id, &p.Username, &joinedAt); err != nil {
			return nil, err
		}
		p.JoinedAt = time.UnixMilli(joinedAt)
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

func (s *Store) GetParticipantsCount(ctx context.Context, roomId string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE room_id = ?`, roomId,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}

	return count, nil
}
