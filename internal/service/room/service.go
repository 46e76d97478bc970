package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/cowatch/server/internal/repository/room"
	"github.com/cowatch/server/pkg/ytvideodata"
	"github.com/jonboulle/clockwork"
)

var (
	ErrPermissionDenied         = errors.New("permission denied")
	ErrRoomNotFound             = errors.New("room not found")
	ErrParticipantNotFound      = errors.New("participant not found")
	ErrParticipantsLimitReached = errors.New("participants limit reached")
	ErrHostLeaseTaken           = errors.New("host lease taken")
	ErrInvalidToken             = errors.New("invalid token")
	ErrInvalidPlayerState       = errors.New("invalid player state")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	GetRoomIds(context.Context) ([]string, error)
	RemoveRoom(context.Context, string) error
	IsRoomExists(context.Context, string) (bool, error)
	// participant
	SetParticipant(context.Context, *room.SetParticipantParams) error
	RemoveParticipant(context.Context, *room.RemoveParticipantParams) error
	GetParticipant(context.Context, *room.GetParticipantParams) (room.Participant, error)
	GetParticipants(context.Context, string) ([]room.Participant, error)
	GetParticipantsCount(context.Context, string) (int, error)
	// chat
	AddMessage(context.Context, *room.AddMessageParams) error
	GetMessages(context.Context, string) ([]room.Message, error)
	AddReaction(context.Context, *room.AddReactionParams) error
	GetReactions(context.Context, *room.GetReactionsParams) ([]room.Reaction, error)
	// player
	GetPlayer(context.Context, string) (room.Player, error)
	UpdatePlayer(context.Context, *room.UpdatePlayerParams) (room.Player, error)
	// host
	AcquireHostLease(context.Context, *room.AcquireHostLeaseParams) (room.HostLease, error)
	GetHostLease(context.Context, string) (room.HostLease, error)
	ReleaseHostLease(context.Context, *room.ReleaseHostLeaseParams) error
}

type iVideoData interface {
	Get(ctx context.Context, videoId string) (*ytvideodata.VideoData, error)
}

type Config struct {
	Secret            string
	RoomTTL           time.Duration
	ReactionTTL       time.Duration
	HostLeaseTTL      time.Duration
	MessagesLimit     int
	ReactionsLimit    int
	ParticipantsLimit int
	CacheSize         int
	CacheTTL          time.Duration
}

type service struct {
	roomRepo  iRoomRepo
	videoData iVideoData
	cache     *snapshotCache
	clock     clockwork.Clock
	logger    *slog.Logger
	random    func() float64
	cfg       Config
}

// NewService wires the room service. videoData may be nil, in which case rooms
// are created without video metadata.
func NewService(roomRepo iRoomRepo, videoData iVideoData, clock clockwork.Clock, logger *slog.Logger, cfg *Config) *service {
	return &service{
		roomRepo:  roomRepo,
		videoData: videoData,
		cache:     newSnapshotCache(cfg.CacheSize, cfg.CacheTTL),
		clock:     clock,
		logger:    logger,
		random:    rand.Float64,
		cfg:       *cfg,
	}
}

func (s service) now() time.Time {
	return s.clock.Now()
}

func (s service) invalidate(roomId string) {
	s.cache.invalidate(roomId)
}

func (s service) requireRoom(ctx context.Context, roomId string) error {
	exists, err := s.roomRepo.IsRoomExists(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !exists {
		return ErrRoomNotFound
	}

	return nil
}

// mapRepoErr translates storage sentinels into service ones.
func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrPlayerNotFound):
		return ErrRoomNotFound
	case errors.Is(err, room.ErrParticipantNotFound):
		return ErrParticipantNotFound
	case errors.Is(err, room.ErrHostLeaseTaken):
		return ErrHostLeaseTaken
	}

	return err
}
