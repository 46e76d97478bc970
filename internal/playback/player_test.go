package playback

import "errors"

var errPlayerBroken = errors.New("player broken")

type fakePlayer struct {
	status  Status
	time    float64
	ready   bool
	failing bool

	plays  int
	pauses int
	seeks  []float64
}

func newFakePlayer(status Status, t float64) *fakePlayer {
	return &fakePlayer{status: status, time: t, ready: true}
}

func (p *fakePlayer) commands() int {
	return p.plays + p.pauses + len(p.seeks)
}

func (p *fakePlayer) Play() error {
	if p.failing {
		return errPlayerBroken
	}
	p.plays++
	return nil
}

func (p *fakePlayer) Pause() error {
	if p.failing {
		return errPlayerBroken
	}
	p.pauses++
	return nil
}

func (p *fakePlayer) SeekTo(seconds float64) error {
	if p.failing {
		return errPlayerBroken
	}
	p.seeks = append(p.seeks, seconds)
	return nil
}

func (p *fakePlayer) CurrentTime() (float64, error) {
	if !p.ready {
		return 0, ErrPlayerNotReady
	}
	return p.time, nil
}

func (p *fakePlayer) State() (Status, error) {
	if !p.ready {
		return 0, ErrPlayerNotReady
	}
	return p.status, nil
}
