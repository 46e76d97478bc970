package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cowatch/server/internal/playback"
	"github.com/jonboulle/clockwork"
)

type Role string

const (
	RoleHost     Role = "host"
	RoleFollower Role = "follower"
)

const leaveTimeout = 5 * time.Second

type iRoomClient interface {
	FetchLatestReport(ctx context.Context, roomId string) (playback.Report, error)
	PublishReport(ctx context.Context, m Membership, report playback.Report) (playback.Report, error)
	LeaveRoom(ctx context.Context, m Membership) error
	Watch(ctx context.Context, roomId string, fn func(playback.Report)) error
}

type SessionConfig struct {
	Role         Role
	Heartbeat    time.Duration
	PollInterval time.Duration
	Tolerance    playback.Tolerance
	// UseFeed adds the websocket feed on top of polling for followers.
	UseFeed bool
}

func (c *SessionConfig) Validate() error {
	if c.Role != RoleHost && c.Role != RoleFollower {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	if c.Heartbeat <= 0 {
		return errors.New("heartbeat must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	return c.Tolerance.Validate()
}

// Session keeps one player in sync with a room until its context is done.
type Session struct {
	client     iRoomClient
	player     playback.Player
	membership Membership
	clock      clockwork.Clock
	logger     *slog.Logger
	cfg        SessionConfig
}

func NewSession(client iRoomClient, player playback.Player, membership Membership, clock clockwork.Clock, logger *slog.Logger, cfg *SessionConfig) *Session {
	return &Session{
		client:     client,
		player:     player,
		membership: membership,
		clock:      clock,
		logger:     logger.With("room_id", membership.RoomId, "role", cfg.Role),
		cfg:        *cfg,
	}
}

// Run blocks until ctx is done or the room disappears, then leaves the room.
// It returns ErrRoomNotFound in the latter case and nil otherwise.
func (s *Session) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "session started")

	var err error
	switch s.cfg.Role {
	case RoleHost:
		err = s.runHost(ctx)
	default:
		err = s.runFollower(ctx)
	}

	if !errors.Is(err, ErrRoomNotFound) && s.membership.Token != "" {
		leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		if leaveErr := s.client.LeaveRoom(leaveCtx, s.membership); leaveErr != nil {
			s.logger.WarnContext(ctx, "failed to leave room", "error", leaveErr)
		}
		cancel()
	}

	s.logger.InfoContext(ctx, "session stopped", "error", err)

	return err
}

type publishResult struct {
	report  playback.Report
	stamped playback.Report
	err     error
}

func (s *Session) runHost(ctx context.Context) error {
	sampler := playback.NewSampler(s.player)

	ticker := s.clock.NewTicker(s.cfg.Heartbeat)
	defer ticker.Stop()

	var changes <-chan playback.Status
	if notifier, ok := s.player.(playback.Notifier); ok {
		changes = notifier.StateChanges()
	}

	// one publish in flight at a time, a trigger during it is replayed after
	results := make(chan publishResult, 1)
	inflight, pending := false, false

	trigger := func() {
		if inflight {
			pending = true
			return
		}

		report, ok, err := sampler.Sample()
		if err != nil {
			s.logger.WarnContext(ctx, "failed to sample player", "error", err)
			return
		}
		if !ok {
			return
		}

		inflight = true
		go func() {
			stamped, err := s.client.PublishReport(ctx, s.membership, report)
			results <- publishResult{report: report, stamped: stamped, err: err}
		}()
	}

	trigger()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			trigger()
		case status, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.logger.DebugContext(ctx, "player state changed", "status", status)
			trigger()
		case res := <-results:
			inflight = false
			if res.err != nil {
				sampler.Forget(res.report)
				if errors.Is(res.err, ErrRoomNotFound) {
					return ErrRoomNotFound
				}
				if ctx.Err() == nil {
					s.logger.WarnContext(ctx, "failed to publish report", "error", res.err)
				}
			} else {
				s.logger.DebugContext(ctx, "report published", "status", res.stamped.Status, "time", res.stamped.Time, "seq", res.stamped.Seq)
			}
			if pending {
				pending = false
				trigger()
			}
		}
	}
}

type fetchResult struct {
	report playback.Report
	err    error
}

func (s *Session) runFollower(ctx context.Context) error {
	reconciler := playback.NewReconciler(s.player, s.cfg.Tolerance)

	ticker := s.clock.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	results := make(chan fetchResult, 1)
	fetching := false

	fetch := func() {
		if fetching {
			return
		}
		fetching = true
		go func() {
			report, err := s.client.FetchLatestReport(ctx, s.membership.RoomId)
			results <- fetchResult{report: report, err: err}
		}()
	}

	var pushed chan playback.Report
	watchErr := make(chan error, 1)
	if s.cfg.UseFeed {
		pushed = make(chan playback.Report, 1)
		go func() {
			watchErr <- s.client.Watch(ctx, s.membership.RoomId, func(report playback.Report) {
				select {
				case pushed <- report:
				case <-ctx.Done():
				}
			})
		}()
	}

	reconcile := func() {
		cmd, err := reconciler.Reconcile()
		if err != nil {
			s.logger.WarnContext(ctx, "failed to reconcile", "error", err)
			return
		}
		if cmd.Action != playback.ActionNone {
			s.logger.InfoContext(ctx, "player corrected", "action", cmd.Action, "time", cmd.Time)
		}
	}

	observe := func(report playback.Report) {
		if !reconciler.Observe(report) {
			s.logger.DebugContext(ctx, "stale report dropped", "seq", report.Seq)
			return
		}
		reconcile()
	}

	fetch()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			reconciler.NextCycle()
			reconcile()
			fetch()
		case res := <-results:
			fetching = false
			if res.err != nil {
				if errors.Is(res.err, ErrRoomNotFound) {
					return ErrRoomNotFound
				}
				if ctx.Err() == nil {
					s.logger.WarnContext(ctx, "failed to fetch report", "error", res.err)
				}
				continue
			}
			observe(res.report)
		case report := <-pushed:
			observe(report)
		case err := <-watchErr:
			if errors.Is(err, ErrRoomNotFound) {
				return ErrRoomNotFound
			}
			if err != nil {
				s.logger.WarnContext(ctx, "room feed stopped, polling only", "error", err)
			}
		}
	}
}
