package room

import "time"

type SetRoomParams struct {
	RoomId            string
	VideoId           string
	VideoTitle        string
	VideoAuthor       string
	VideoThumbnailUrl string
	HostUsername      string
	Player            Player
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

type SetParticipantParams struct {
	RoomId        string
	ParticipantId string
	Username      string
	JoinedAt      time.Time
}

type RemoveParticipantParams struct {
	RoomId        string
	ParticipantId string
}

type GetParticipantParams struct {
	RoomId        string
	ParticipantId string
}

type AddMessageParams struct {
	RoomId  string
	Message Message
	// number of newest messages kept
	Limit int
}

type AddReactionParams struct {
	RoomId   string
	Reaction Reaction
	Limit    int
}

type GetReactionsParams struct {
	RoomId string
	Since  time.Time
}

type UpdatePlayerParams struct {
	RoomId    string
	Status    int
	Time      float64
	UpdatedAt time.Time
}

type AcquireHostLeaseParams struct {
	RoomId        string
	ParticipantId string
	TTL           time.Duration
}

type ReleaseHostLeaseParams struct {
	RoomId        string
	ParticipantId string
}
