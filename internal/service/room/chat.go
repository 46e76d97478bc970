package room

import (
	"context"
	"fmt"

	"github.com/cowatch/server/internal/repository/room"
	"github.com/google/uuid"
)

type AddMessageParams struct {
	RoomId  string
	Token   string
	Message string
}

func (s service) AddMessage(ctx context.Context, params *AddMessageParams) (room.Message, error) {
	s.logger.DebugContext(ctx, "called", "room_id", params.RoomId)

	claims, err := s.authorize(ctx, params.RoomId, params.Token)
	if err != nil {
		return room.Message{}, err
	}

	participant, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
		RoomId:        params.RoomId,
		ParticipantId: claims.ParticipantId,
	})
	if err != nil {
		return room.Message{}, mapRepoErr(err)
	}

	message := room.Message{
		Id:            uuid.NewString(),
		ParticipantId: participant.Id,
		Username:      participant.Username,
		Message:       params.Message,
		Timestamp:     s.now().UnixMilli(),
	}
	if err := s.roomRepo.AddMessage(ctx, &room.AddMessageParams{
		RoomId:  params.RoomId,
		Message: message,
		Limit:   s.cfg.MessagesLimit,
	}); err != nil {
		return room.Message{}, fmt.Errorf("failed to add message: %w", mapRepoErr(err))
	}
	s.invalidate(params.RoomId)

	return message, nil
}

type AddReactionParams struct {
	RoomId string
	Token  string
	Emoji  string
}

// AddReaction places an emoji at a random spot in the lower part of the
// player: x in [10,90), y in [70,90) percent.
func (s service) AddReaction(ctx context.Context, params *AddReactionParams) (room.Reaction, error) {
	s.logger.DebugContext(ctx, "called", "room_id", params.RoomId, "emoji", params.Emoji)

	if _, err := s.authorize(ctx, params.RoomId, params.Token); err != nil {
		return room.Reaction{}, err
	}

	reaction := room.Reaction{
		Id:        uuid.NewString(),
		Emoji:     params.Emoji,
		X:         10 + s.random()*80,
		Y:         70 + s.random()*20,
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.roomRepo.AddReaction(ctx, &room.AddReactionParams{
		RoomId:   params.RoomId,
		Reaction: reaction,
		Limit:    s.cfg.ReactionsLimit,
	}); err != nil {
		return room.Reaction{}, fmt.Errorf("failed to add reaction: %w", mapRepoErr(err))
	}
	s.invalidate(params.RoomId)

	return reaction, nil
}
