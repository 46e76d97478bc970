package room

import (
	"time"

	"github.com/cowatch/server/internal/playback"
	"github.com/cowatch/server/internal/repository/room"
)

type (
	Message  = room.Message
	Reaction = room.Reaction
)

type Video struct {
	Id           string `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

type Participant struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	JoinedAt int64  `json:"joined_at"`
}

type Host struct {
	ParticipantId string `json:"participant_id"`
	ExpiresAt     int64  `json:"expires_at"`
}

type RoomState struct {
	RoomId       string `json:"room_id"`
	Video        Video  `json:"video"`
	HostUsername string `json:"host_username"`
	// HostId is the participant holding the host lease, empty when none does.
	HostId       string          `json:"host_id"`
	Participants []Participant   `json:"participants"`
	Messages     []Message       `json:"messages"`
	Reactions    []Reaction      `json:"reactions"`
	Player       playback.Report `json:"player"`
	CreatedAt    int64           `json:"created_at"`
	ExpiresAt    int64           `json:"expires_at"`
}

type RoomSummary struct {
	RoomId            string `json:"room_id"`
	VideoId           string `json:"video_id"`
	VideoTitle        string `json:"video_title"`
	HostUsername      string `json:"host_username"`
	ParticipantsCount int    `json:"participants_count"`
	CreatedAt         int64  `json:"created_at"`
	ExpiresAt         int64  `json:"expires_at"`
}

func mapParticipant(p room.Participant) Participant {
	return Participant{
		Id:       p.Id,
		Username: p.Username,
		JoinedAt: p.JoinedAt.UnixMilli(),
	}
}

func mapHost(lease room.HostLease) Host {
	return Host{
		ParticipantId: lease.ParticipantId,
		ExpiresAt:     lease.ExpiresAt.UnixMilli(),
	}
}

func mapPlayer(p room.Player) playback.Report {
	report := playback.Report{
		Status: playback.Status(p.Status),
		Time:   p.Time,
		Seq:    p.Seq,
	}
	if p.UpdatedAt != 0 {
		report.UpdatedAt = time.UnixMilli(p.UpdatedAt).UTC()
	}

	return report
}
