package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/cowatch/server/internal/playback"
	"github.com/cowatch/server/internal/repository/room"
	"github.com/google/uuid"
)

const (
	roomIdLength   = 8
	roomIdAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_-"
	// attempts to find a free room id
	roomIdAttempts = 3
)

func newRoomId() string {
	// bytes 8..15 of a v4 uuid are random apart from the two variant bits,
	// which the 6-bit mask drops
	u := uuid.New()
	b := make([]byte, roomIdLength)
	for i := range b {
		b[i] = roomIdAlphabet[u[8+i]&63]
	}

	return string(b)
}

type CreateRoomParams struct {
	VideoId  string
	Username string
}

type CreateRoomResponse struct {
	RoomId        string
	ParticipantId string
	Token         string
	Room          RoomState
}

// CreateRoom stores a new room with the creator as its first participant and
// host.
func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	s.logger.DebugContext(ctx, "called", "params", params)

	now := s.now()
	video := s.fetchVideo(ctx, params.VideoId)
	initial := playback.InitialReport()

	var roomId string
	for attempt := 0; ; attempt++ {
		roomId = newRoomId()
		err := s.roomRepo.SetRoom(ctx, &room.SetRoomParams{
			RoomId:            roomId,
			VideoId:           params.VideoId,
			VideoTitle:        video.Title,
			VideoAuthor:       video.Author,
			VideoThumbnailUrl: video.ThumbnailUrl,
			HostUsername:      params.Username,
			Player: room.Player{
				Status: int(initial.Status),
				Time:   initial.Time,
			},
			CreatedAt: now,
			ExpiresAt: now.Add(s.cfg.RoomTTL),
		})
		if err == nil {
			break
		}

		if !errors.Is(err, room.ErrRoomAlreadyExists) || attempt+1 >= roomIdAttempts {
			s.logger.InfoContext(ctx, "failed to set room", "error", err)
			return CreateRoomResponse{}, fmt.Errorf("failed to set room: %w", err)
		}
	}

	participantId := uuid.NewString()
	if err := s.roomRepo.SetParticipant(ctx, &room.SetParticipantParams{
		RoomId:        roomId,
		ParticipantId: participantId,
		Username:      params.Username,
		JoinedAt:      now,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to set participant", "error", err)
		return CreateRoomResponse{}, fmt.Errorf("failed to set participant: %w", err)
	}

	if _, err := s.roomRepo.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{
		RoomId:        roomId,
		ParticipantId: participantId,
		TTL:           s.cfg.HostLeaseTTL,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to acquire host lease", "error", err)
		return CreateRoomResponse{}, fmt.Errorf("failed to acquire host lease: %w", err)
	}

	token, err := s.generateJWT(roomId, participantId)
	if err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to generate jwt: %w", err)
	}

	state, err := s.GetRoomState(ctx, roomId)
	if err != nil {
		return CreateRoomResponse{}, err
	}

	s.logger.InfoContext(ctx, "room created", "room_id", roomId, "participant_id", participantId)

	return CreateRoomResponse{
		RoomId:        roomId,
		ParticipantId: participantId,
		Token:         token,
		Room:          state,
	}, nil
}

// GetRoomState returns the full room snapshot, served from the cache when
// possible.
func (s service) GetRoomState(ctx context.Context, roomId string) (RoomState, error) {
	s.logger.DebugContext(ctx, "called", "room_id", roomId)

	if state, ok := s.cache.get(roomId); ok {
		return state, nil
	}

	return s.cache.load(roomId, func() (RoomState, error) {
		return s.readRoomState(ctx, roomId)
	})
}

func (s service) readRoomState(ctx context.Context, roomId string) (RoomState, error) {
	r, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return RoomState{}, mapRepoErr(err)
	}

	participants, err := s.roomRepo.GetParticipants(ctx, roomId)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get participants: %w", err)
	}

	messages, err := s.roomRepo.GetMessages(ctx, roomId)
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get messages: %w", err)
	}

	reactions, err := s.roomRepo.GetReactions(ctx, &room.GetReactionsParams{
		RoomId: roomId,
		Since:  s.now().Add(-s.cfg.ReactionTTL),
	})
	if err != nil {
		return RoomState{}, fmt.Errorf("failed to get reactions: %w", err)
	}

	player, err := s.roomRepo.GetPlayer(ctx, roomId)
	if err != nil {
		return RoomState{}, mapRepoErr(err)
	}

	var hostId string
	lease, err := s.roomRepo.GetHostLease(ctx, roomId)
	switch {
	case err == nil:
		hostId = lease.ParticipantId
	case !errors.Is(err, room.ErrHostLeaseNotFound):
		return RoomState{}, fmt.Errorf("failed to get host lease: %w", err)
	}

	state := RoomState{
		RoomId: r.RoomId,
		Video: Video{
			Id:           r.VideoId,
			Title:        r.VideoTitle,
			Author:       r.VideoAuthor,
			ThumbnailUrl: r.VideoThumbnailUrl,
		},
		HostUsername: r.HostUsername,
		HostId:       hostId,
		Participants: make([]Participant, 0, len(participants)),
		Messages:     messages,
		Reactions:    reactions,
		Player:       mapPlayer(player),
		CreatedAt:    r.CreatedAt.UnixMilli(),
		ExpiresAt:    r.ExpiresAt.UnixMilli(),
	}
	for _, p := range participants {
		state.Participants = append(state.Participants, mapParticipant(p))
	}

	return state, nil
}
