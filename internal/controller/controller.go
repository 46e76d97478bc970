package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cowatch/server/internal/playback"
	"github.com/cowatch/server/internal/service/room"
	"github.com/cowatch/server/pkg/validator"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	GetRoomState(context.Context, string) (room.RoomState, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) error
	ClaimHost(context.Context, *room.ClaimHostParams) (room.Host, error)
	GetPlayerState(context.Context, string) (playback.Report, error)
	UpdatePlayerState(context.Context, *room.UpdatePlayerStateParams) (playback.Report, error)
	AddMessage(context.Context, *room.AddMessageParams) (room.Message, error)
	AddReaction(context.Context, *room.AddReactionParams) (room.Reaction, error)
	ListRooms(context.Context) ([]room.RoomSummary, error)
	DeleteRoom(context.Context, string) error
}

type Config struct {
	AdminToken   string
	FeedInterval time.Duration
}

type controller struct {
	roomService  iRoomService
	upgrader     websocket.Upgrader
	validate     *validator.Validator
	logger       *slog.Logger
	clock        clockwork.Clock
	adminToken   string
	feedInterval time.Duration
}

func NewController(roomService iRoomService, clock clockwork.Clock, logger *slog.Logger, cfg *Config) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService:  roomService,
		validate:     validator.NewValidator(),
		logger:       logger,
		clock:        clock,
		adminToken:   cfg.AdminToken,
		feedInterval: cfg.FeedInterval,
	}
}
