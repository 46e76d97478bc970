package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/cowatch/server/internal/repository/room"
	"github.com/google/uuid"
)

type JoinRoomParams struct {
	RoomId   string
	Username string
}

type JoinRoomResponse struct {
	ParticipantId string
	Token         string
	Room          RoomState
}

func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	if err := s.requireRoom(ctx, params.RoomId); err != nil {
		return JoinRoomResponse{}, err
	}

	count, err := s.roomRepo.GetParticipantsCount(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get participants count: %w", err)
	}

	if s.cfg.ParticipantsLimit > 0 && count >= s.cfg.ParticipantsLimit {
		return JoinRoomResponse{}, ErrParticipantsLimitReached
	}

	participantId := uuid.NewString()
	if err := s.roomRepo.SetParticipant(ctx, &room.SetParticipantParams{
		RoomId:        params.RoomId,
		ParticipantId: participantId,
		Username:      params.Username,
		JoinedAt:      s.now(),
	}); err != nil {
		return JoinRoomResponse{}, mapRepoErr(err)
	}
	s.invalidate(params.RoomId)

	token, err := s.generateJWT(params.RoomId, participantId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to generate jwt: %w", err)
	}

	state, err := s.GetRoomState(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	s.logger.InfoContext(ctx, "participant joined", "room_id", params.RoomId, "participant_id", participantId)

	return JoinRoomResponse{
		ParticipantId: participantId,
		Token:         token,
		Room:          state,
	}, nil
}

type LeaveRoomParams struct {
	RoomId string
	Token  string
}

// LeaveRoom removes the caller from the room and frees the host lease if the
// caller held it.
func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) error {
	s.logger.DebugContext(ctx, "called", "room_id", params.RoomId)

	claims, err := s.authorize(ctx, params.RoomId, params.Token)
	if err != nil {
		return err
	}

	if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		RoomId:        params.RoomId,
		ParticipantId: claims.ParticipantId,
	}); err != nil {
		return mapRepoErr(err)
	}

	if err := s.roomRepo.ReleaseHostLease(ctx, &room.ReleaseHostLeaseParams{
		RoomId:        params.RoomId,
		ParticipantId: claims.ParticipantId,
	}); err != nil && !errors.Is(err, room.ErrHostLeaseNotFound) {
		return fmt.Errorf("failed to release host lease: %w", err)
	}
	s.invalidate(params.RoomId)

	s.logger.InfoContext(ctx, "participant left", "room_id", params.RoomId, "participant_id", claims.ParticipantId)

	return nil
}

type ClaimHostParams struct {
	RoomId string
	Token  string
}

// ClaimHost makes the caller the host when the lease is free, expired or
// already theirs.
func (s service) ClaimHost(ctx context.Context, params *ClaimHostParams) (Host, error) {
	s.logger.DebugContext(ctx, "called", "room_id", params.RoomId)

	claims, err := s.authorize(ctx, params.RoomId, params.Token)
	if err != nil {
		return Host{}, err
	}

	if _, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:        params.RoomId,
		ParticipantId: claims.ParticipantId,
	}); err != nil {
		return Host{}, mapRepoErr(err)
	}

	lease, err := s.roomRepo.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{
		RoomId:        params.RoomId,
		ParticipantId: claims.ParticipantId,
		TTL:           s.cfg.HostLeaseTTL,
	})
	if err != nil {
		return Host{}, mapRepoErr(err)
	}
	s.invalidate(params.RoomId)

	return mapHost(lease), nil
}
