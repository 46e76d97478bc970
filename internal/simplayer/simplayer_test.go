package simplayer

import (
	"testing"
	"time"

	"github.com/cowatch/server/internal/playback"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotReadyUntilLoaded(t *testing.T) {
	p := New(clockwork.NewFakeClock(), 0)

	_, err := p.State()
	assert.ErrorIs(t, err, playback.ErrPlayerNotReady)
	assert.ErrorIs(t, p.Play(), playback.ErrPlayerNotReady)

	p.Load()
	status, err := p.State()
	require.NoError(t, err)
	assert.Equal(t, playback.StatusCued, status)
}

func TestPlaybackFollowsClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := New(clock, 0)
	p.Load()

	require.NoError(t, p.Play())
	clock.Advance(1500 * time.Millisecond)

	now, err := p.CurrentTime()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, now, 1e-9)

	require.NoError(t, p.Pause())
	clock.Advance(time.Second)
	now, err = p.CurrentTime()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, now, 1e-9)

	require.NoError(t, p.SeekTo(42))
	now, err = p.CurrentTime()
	require.NoError(t, err)
	assert.Equal(t, 42.0, now)

	assert.Equal(t, Calls{Play: 1, Pause: 1, Seek: 1}, p.Calls())
}

func TestEndsAtDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := New(clock, 10*time.Second)
	p.Load()

	require.NoError(t, p.SeekTo(99))
	now, err := p.CurrentTime()
	require.NoError(t, err)
	assert.Equal(t, 10.0, now)

	require.NoError(t, p.SeekTo(8))
	require.NoError(t, p.Play())
	clock.Advance(5 * time.Second)

	status, err := p.State()
	require.NoError(t, err)
	assert.Equal(t, playback.StatusEnded, status)
}

func TestStateChanges(t *testing.T) {
	p := New(clockwork.NewFakeClock(), 0)
	p.Load()
	require.NoError(t, p.Play())
	require.NoError(t, p.Play())
	require.NoError(t, p.Pause())
	require.NoError(t, p.Close())

	var got []playback.Status
	for status := range p.StateChanges() {
		got = append(got, status)
	}
	assert.Equal(t, []playback.Status{playback.StatusCued, playback.StatusPlaying, playback.StatusPaused}, got)

	_, err := p.State()
	assert.ErrorIs(t, err, playback.ErrPlayerNotReady)
}
