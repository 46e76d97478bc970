// Package simplayer is a headless video player driven by a clock. It stands
// in for the embedded YouTube player in the watcher CLI and in tests.
package simplayer

import (
	"math"
	"sync"
	"time"

	"github.com/cowatch/server/internal/playback"
	"github.com/jonboulle/clockwork"
)

const changesBuffer = 16

// Calls counts the commands a player received.
type Calls struct {
	Play  int
	Pause int
	Seek  int
}

type Player struct {
	mu    sync.Mutex
	clock clockwork.Clock

	ready    bool
	closed   bool
	status   playback.Status
	position float64
	anchor   time.Time
	// zero means unbounded
	duration float64

	calls   Calls
	changes chan playback.Status
}

// New returns a player that is not ready until Load is called.
func New(clock clockwork.Clock, duration time.Duration) *Player {
	return &Player{
		clock:    clock,
		status:   playback.StatusUnstarted,
		duration: duration.Seconds(),
		changes:  make(chan playback.Status, changesBuffer),
	}
}

// Load makes the player ready with the video cued at the start.
func (p *Player) Load() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ready = true
	p.position = 0
	p.anchor = p.clock.Now()
	p.setStatus(playback.StatusCued)
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return playback.ErrPlayerNotReady
	}

	p.calls.Play++
	p.position = p.current()
	p.anchor = p.clock.Now()
	p.setStatus(playback.StatusPlaying)

	return nil
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return playback.ErrPlayerNotReady
	}

	p.calls.Pause++
	p.position = p.current()
	p.anchor = p.clock.Now()
	p.setStatus(playback.StatusPaused)

	return nil
}

func (p *Player) SeekTo(seconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return playback.ErrPlayerNotReady
	}

	p.calls.Seek++
	p.position = p.clamp(seconds)
	p.anchor = p.clock.Now()

	return nil
}

func (p *Player) CurrentTime() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return 0, playback.ErrPlayerNotReady
	}

	return p.current(), nil
}

func (p *Player) State() (playback.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		return 0, playback.ErrPlayerNotReady
	}

	if p.status == playback.StatusPlaying && p.duration > 0 && p.current() >= p.duration {
		p.position = p.duration
		p.anchor = p.clock.Now()
		p.setStatus(playback.StatusEnded)
	}

	return p.status, nil
}

// StateChanges delivers status transitions. Transitions are dropped when the
// reader falls behind.
func (p *Player) StateChanges() <-chan playback.Status {
	return p.changes
}

func (p *Player) Calls() Calls {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.calls
}

// Close releases the player; it is not ready afterwards.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	p.ready = false
	close(p.changes)

	return nil
}

func (p *Player) current() float64 {
	if p.status != playback.StatusPlaying {
		return p.position
	}

	return p.clamp(p.position + p.clock.Since(p.anchor).Seconds())
}

func (p *Player) clamp(t float64) float64 {
	t = math.Max(t, 0)
	if p.duration > 0 {
		t = math.Min(t, p.duration)
	}

	return t
}

func (p *Player) setStatus(status playback.Status) {
	if status == p.status {
		return
	}

	p.status = status
	if p.closed {
		return
	}

	select {
	case p.changes <- status:
	default:
	}
}
