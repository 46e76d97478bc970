package room

import "time"

type Room struct {
	RoomId            string
	VideoId           string
	VideoTitle        string
	VideoAuthor       string
	VideoThumbnailUrl string
	HostUsername      string
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

type Participant struct {
	Id       string
	Username string
	JoinedAt time.Time
}

type Message struct {
	Id            string `json:"id"`
	ParticipantId string `json:"participant_id"`
	Username      string `json:"username"`
	Message       string `json:"message"`
	// unix milliseconds
	Timestamp int64 `json:"timestamp"`
}

type Reaction struct {
	Id    string  `json:"id"`
	Emoji string  `json:"emoji"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	// unix milliseconds
	CreatedAt int64 `json:"created_at"`
}

type Player struct {
	Status    int     `redis:"status"`
	Time      float64 `redis:"time"`
	Seq       int64   `redis:"seq"`
	UpdatedAt int64   `redis:"updated_at"`
}

type HostLease struct {
	ParticipantId string
	ExpiresAt     time.Time
}
