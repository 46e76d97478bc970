package room

import "context"

// Repository is implemented by every room store.
type Repository interface {
	SetRoom(context.Context, *SetRoomParams) error
	GetRoom(context.Context, string) (Room, error)
	GetRoomIds(context.Context) ([]string, error)
	RemoveRoom(context.Context, string) error
	IsRoomExists(context.Context, string) (bool, error)

	SetParticipant(context.Context, *SetParticipantParams) error
	RemoveParticipant(context.Context, *RemoveParticipantParams) error
	GetParticipant(context.Context, *GetParticipantParams) (Participant, error)
	GetParticipants(context.Context, string) ([]Participant, error)
	GetParticipantsCount(context.Context, string) (int, error)

	AddMessage(context.Context, *AddMessageParams) error
	GetMessages(context.Context, string) ([]Message, error)
	AddReaction(context.Context, *AddReactionParams) error
	GetReactions(context.Context, *GetReactionsParams) ([]Reaction, error)

	GetPlayer(context.Context, string) (Player, error)
	UpdatePlayer(context.Context, *UpdatePlayerParams) (Player, error)

	AcquireHostLease(context.Context, *AcquireHostLeaseParams) (HostLease, error)
	GetHostLease(context.Context, string) (HostLease, error)
	ReleaseHostLease(context.Context, *ReleaseHostLeaseParams) error
}
