package playback

import "errors"

// ErrPlayerNotReady is returned by a Player that has not finished loading.
var ErrPlayerNotReady = errors.New("player not ready")

// Player is the subset of the embedded video player the sync loops drive.
type Player interface {
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	CurrentTime() (float64, error)
	State() (Status, error)
}

// Notifier is implemented by players that announce their own state transitions.
type Notifier interface {
	StateChanges() <-chan Status
}
