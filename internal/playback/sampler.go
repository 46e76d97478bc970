package playback

import (
	"errors"
	"fmt"
	"time"
)

// DefaultHeartbeat is how often the host re-samples without a player event.
const DefaultHeartbeat = 2 * time.Second

// Sampler decides when the host player state is worth publishing. It is not
// safe for concurrent use; the host loop owns it.
type Sampler struct {
	player  Player
	last    reportKey
	emitted bool
}

func NewSampler(player Player) *Sampler {
	return &Sampler{player: player}
}

// Sample reads the player and returns a report when its status or whole-second
// position differs from the last emitted one. A player that is not ready
// yields no report and no error.
func (s *Sampler) Sample() (Report, bool, error) {
	status, err := s.player.State()
	if err != nil {
		if errors.Is(err, ErrPlayerNotReady) {
			return Report{}, false, nil
		}
		return Report{}, false, fmt.Errorf("failed to read player state: %w", err)
	}

	t, err := s.player.CurrentTime()
	if err != nil {
		if errors.Is(err, ErrPlayerNotReady) {
			return Report{}, false, nil
		}
		return Report{}, false, fmt.Errorf("failed to read player time: %w", err)
	}

	report := Report{Status: status, Time: t}
	key := report.key()
	if s.emitted && key == s.last {
		return Report{}, false, nil
	}

	s.last = key
	s.emitted = true

	return report, true, nil
}

// Forget drops the emitted key if it still belongs to report, so the next
// trigger emits again. Used when publishing the report failed.
func (s *Sampler) Forget(report Report) {
	if s.emitted && s.last == report.key() {
		s.emitted = false
	}
}
