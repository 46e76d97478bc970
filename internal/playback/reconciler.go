package playback

import (
	"errors"
	"fmt"
	"time"
)

// DefaultPollInterval is how often followers fetch the host report.
const DefaultPollInterval = 2 * time.Second

type Action int

const (
	ActionNone Action = iota
	ActionPlay
	ActionPause
	ActionSeek
)

func (a Action) String() string {
	switch a {
	case ActionPlay:
		return "play"
	case ActionPause:
		return "pause"
	case ActionSeek:
		return "seek"
	default:
		return "none"
	}
}

// Command is a single corrective action for the follower player. Time is only
// meaningful for ActionSeek.
type Command struct {
	Action Action  `json:"action"`
	Time   float64 `json:"time,omitempty"`
}

// State of a follower.
type State int

const (
	StateIdle State = iota
	StateFollowing
)

func (s State) String() string {
	if s == StateFollowing {
		return "FOLLOWING"
	}
	return "IDLE"
}

// Decide picks the one action that moves a follower observed at (status, t)
// toward host. Status mismatches win over drift: when play or pause is
// returned no seek is considered in the same pass.
func Decide(host Report, status Status, t float64, tolerance Tolerance) Command {
	if status != host.Status {
		switch host.Status {
		case StatusPlaying:
			return Command{Action: ActionPlay}
		case StatusPaused:
			return Command{Action: ActionPause}
		}
		// unstarted, ended, buffering and cued are left for a later report
		return Command{Action: ActionNone}
	}

	if host.Status != StatusPlaying {
		return Command{Action: ActionNone}
	}

	if tolerance.Within(t - host.Time) {
		return Command{Action: ActionNone}
	}

	return Command{Action: ActionSeek, Time: host.Time}
}

// Reconciler steers one follower player toward the latest host report. It is
// not safe for concurrent use; the follower loop owns it.
type Reconciler struct {
	player    Player
	tolerance Tolerance

	target    Report
	hasTarget bool

	// last command that reached the player in the current cycle and the
	// report it was issued for
	acted    Report
	actedCmd Command
	hasActed bool
}

func NewReconciler(player Player, tolerance Tolerance) *Reconciler {
	return &Reconciler{
		player:    player,
		tolerance: tolerance,
	}
}

func (r *Reconciler) State() State {
	if r.hasTarget {
		return StateFollowing
	}
	return StateIdle
}

// Target returns the report the follower is converging to.
func (r *Reconciler) Target() (Report, bool) {
	return r.target, r.hasTarget
}

// Observe replaces the target with report. Reports published before the
// current target are dropped and false is returned.
func (r *Reconciler) Observe(report Report) bool {
	if r.hasTarget && report.OlderThan(r.target) {
		return false
	}

	r.target = report
	r.hasTarget = true
	return true
}

// NextCycle starts a new poll cycle. A command the player accepted but did not
// apply is issued again in the new cycle.
func (r *Reconciler) NextCycle() {
	r.hasActed = false
}

// Reconcile runs one pass and returns the command sent to the player, if any.
// Within a cycle the same command is not repeated for an unchanged target; a
// failed command is not remembered, so the next pass retries it.
func (r *Reconciler) Reconcile() (Command, error) {
	if !r.hasTarget {
		return Command{}, nil
	}

	status, err := r.player.State()
	if err != nil {
		return r.skip(err)
	}

	t, err := r.player.CurrentTime()
	if err != nil {
		return r.skip(err)
	}

	cmd := Decide(r.target, status, t, r.tolerance)
	if cmd.Action == ActionNone {
		r.hasActed = false
		return cmd, nil
	}

	if r.hasActed && r.actedCmd == cmd && r.acted.Same(r.target) && r.acted.Seq == r.target.Seq {
		return Command{}, nil
	}

	if err := r.execute(cmd); err != nil {
		return Command{}, fmt.Errorf("failed to %s: %w", cmd.Action, err)
	}

	r.acted = r.target
	r.actedCmd = cmd
	r.hasActed = true

	return cmd, nil
}

func (r *Reconciler) skip(err error) (Command, error) {
	if errors.Is(err, ErrPlayerNotReady) {
		return Command{}, nil
	}
	return Command{}, fmt.Errorf("failed to observe player: %w", err)
}

func (r *Reconciler) execute(cmd Command) error {
	switch cmd.Action {
	case ActionPlay:
		return r.player.Play()
	case ActionPause:
		return r.player.Pause()
	case ActionSeek:
		return r.player.SeekTo(cmd.Time)
	}
	return nil
}
