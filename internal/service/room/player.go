package room

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cowatch/server/internal/playback"
	"github.com/cowatch/server/internal/repository/room"
)

// GetPlayerState returns the latest published report of the room.
func (s service) GetPlayerState(ctx context.Context, roomId string) (playback.Report, error) {
	s.logger.DebugContext(ctx, "called", "room_id", roomId)

	player, err := s.roomRepo.GetPlayer(ctx, roomId)
	if err != nil {
		return playback.Report{}, mapRepoErr(err)
	}

	return mapPlayer(player), nil
}

type UpdatePlayerStateParams struct {
	RoomId string
	Token  string
	Status playback.Status
	Time   float64
}

// UpdatePlayerState publishes a host report. The caller must hold the host
// lease or take a free one; publishing refreshes the lease.
func (s service) UpdatePlayerState(ctx context.Context, params *UpdatePlayerStateParams) (playback.Report, error) {
	s.logger.DebugContext(ctx, "called", "room_id", params.RoomId, "status", params.Status, "time", params.Time)

	if !params.Status.Valid() || params.Time < 0 || math.IsNaN(params.Time) || math.IsInf(params.Time, 0) {
		return playback.Report{}, ErrInvalidPlayerState
	}

	claims, err := s.authorize(ctx, params.RoomId, params.Token)
	if err != nil {
		return playback.Report{}, err
	}

	if _, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:        params.RoomId,
		ParticipantId: claims.ParticipantId,
	}); err != nil {
		if errors.Is(err, room.ErrParticipantNotFound) {
			return playback.Report{}, ErrPermissionDenied
		}
		return playback.Report{}, mapRepoErr(err)
	}

	if _, err := s.roomRepo.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{
		RoomId:        params.RoomId,
		ParticipantId: claims.ParticipantId,
		TTL:           s.cfg.HostLeaseTTL,
	}); err != nil {
		if errors.Is(err, room.ErrHostLeaseTaken) {
			return playback.Report{}, ErrPermissionDenied
		}
		return playback.Report{}, mapRepoErr(err)
	}

	player, err := s.roomRepo.UpdatePlayer(ctx, &room.UpdatePlayerParams{
		RoomId:    params.RoomId,
		Status:    int(params.Status),
		Time:      params.Time,
		UpdatedAt: s.now(),
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to update player", "error", err)
		return playback.Report{}, fmt.Errorf("failed to update player: %w", mapRepoErr(err))
	}
	s.invalidate(params.RoomId)

	return mapPlayer(player), nil
}
