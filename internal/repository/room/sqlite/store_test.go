package sqlite

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/cowatch/server/internal/repository/room"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	s, err := Open(":memory:", slog.Default(), clock)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, clock
}

func setTestRoom(t *testing.T, s *Store, roomId string, createdAt time.Time) {
	t.Helper()

	err := s.SetRoom(context.Background(), &room.SetRoomParams{
		RoomId:       roomId,
		VideoId:      "dQw4w9WgXcQ",
		VideoTitle:   "title",
		HostUsername: "host",
		Player:       room.Player{Status: -1},
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(24 * time.Hour),
	})
	require.NoError(t, err)
}

func TestSetAndGetRoom(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	setTestRoom(t, s, "abc", clock.Now())

	got, err := s.GetRoom(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.RoomId)
	assert.Equal(t, "dQw4w9WgXcQ", got.VideoId)
	assert.True(t, got.CreatedAt.Equal(clock.Now()))

	err = s.SetRoom(ctx, &room.SetRoomParams{RoomId: "abc", CreatedAt: clock.Now(), ExpiresAt: clock.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, room.ErrRoomAlreadyExists)

	_, err = s.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRoomExpires(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	now := clock.Now()

	setTestRoom(t, s, "old", now.Add(-time.Hour))
	setTestRoom(t, s, "new", now)

	ids, err := s.GetRoomIds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids)

	clock.Advance(23*time.Hour + 30*time.Minute)

	ids, err = s.GetRoomIds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids)

	_, err = s.GetRoom(ctx, "old")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	// an expired id can be reused
	setTestRoom(t, s, "old", clock.Now())

	clock.Advance(time.Hour)
	purged, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestRemoveRoomCascades(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	setTestRoom(t, s, "abc", clock.Now())
	require.NoError(t, s.SetParticipant(ctx, &room.SetParticipantParams{RoomId: "abc", ParticipantId: "p1", Username: "ann", JoinedAt: clock.Now()}))
	require.NoError(t, s.AddMessage(ctx, &room.AddMessageParams{RoomId: "abc", Message: room.Message{Id: "m1", Message: "hi"}}))

	require.NoError(t, s.RemoveRoom(ctx, "abc"))
	assert.ErrorIs(t, s.RemoveRoom(ctx, "abc"), room.ErrRoomNotFound)

	count, err := s.GetParticipantsCount(ctx, "abc")
	require.NoError(t, err)
	assert.Zero(t, count)

	messages, err := s.GetMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestParticipants(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	now := clock.Now()

	err := s.SetParticipant(ctx, &room.SetParticipantParams{RoomId: "nope", ParticipantId: "p1", Username: "ann", JoinedAt: now})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	setTestRoom(t, s, "abc", now)
	require.NoError(t, s.SetParticipant(ctx, &room.SetParticipantParams{RoomId: "abc", ParticipantId: "p2", Username: "bob", JoinedAt: now.Add(time.Second)}))
	require.NoError(t, s.SetParticipant(ctx, &room.SetParticipantParams{RoomId: "abc", ParticipantId: "p1", Username: "ann", JoinedAt: now}))

	participants, err := s.GetParticipants(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, "ann", participants[0].Username)
	assert.Equal(t, "bob", participants[1].Username)

	p, err := s.GetParticipant(ctx, &room.GetParticipantParams{RoomId: "abc", ParticipantId: "p2"})
	require.NoError(t, err)
	assert.Equal(t, "bob", p.Username)

	require.NoError(t, s.RemoveParticipant(ctx, &room.RemoveParticipantParams{RoomId: "abc", ParticipantId: "p1"}))
	assert.ErrorIs(t, s.RemoveParticipant(ctx, &room.RemoveParticipantParams{RoomId: "abc", ParticipantId: "p1"}), room.ErrParticipantNotFound)

	count, err := s.GetParticipantsCount(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMessagesAreCapped(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	setTestRoom(t, s, "abc", clock.Now())

	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, s.AddMessage(ctx, &room.AddMessageParams{
			RoomId:  "abc",
			Message: room.Message{Id: id, Username: "ann", Message: "text " + id},
			Limit:   2,
		}))
	}

	messages, err := s.GetMessages(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m2", messages[0].Id)
	assert.Equal(t, "m3", messages[1].Id)
}

func TestReactionsSince(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	now := clock.Now()
	setTestRoom(t, s, "abc", now)

	require.NoError(t, s.AddReaction(ctx, &room.AddReactionParams{RoomId: "abc", Reaction: room.Reaction{Id: "r1", Emoji: "🔥", CreatedAt: now.Add(-10 * time.Second).UnixMilli()}}))
	require.NoError(t, s.AddReaction(ctx, &room.AddReactionParams{RoomId: "abc", Reaction: room.Reaction{Id: "r2", Emoji: "🎉", X: 42, Y: 80, CreatedAt: now.UnixMilli()}}))

	reactions, err := s.GetReactions(ctx, &room.GetReactionsParams{RoomId: "abc", Since: now.Add(-4 * time.Second)})
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, "r2", reactions[0].Id)
	assert.Equal(t, 42.0, reactions[0].X)

	err = s.AddReaction(ctx, &room.AddReactionParams{RoomId: "gone", Reaction: room.Reaction{Id: "r3"}})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestUpdatePlayerIncrementsSeq(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	setTestRoom(t, s, "abc", clock.Now())

	player, err := s.GetPlayer(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, room.Player{Status: -1}, player)

	first, err := s.UpdatePlayer(ctx, &room.UpdatePlayerParams{RoomId: "abc", Status: 1, Time: 12.5, UpdatedAt: clock.Now()})
	require.NoError(t, err)
	second, err := s.UpdatePlayer(ctx, &room.UpdatePlayerParams{RoomId: "abc", Status: 2, Time: 14.25, UpdatedAt: clock.Now()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)

	player, err = s.GetPlayer(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 2, player.Status)
	assert.Equal(t, 14.25, player.Time)
	assert.Equal(t, int64(2), player.Seq)

	_, err = s.UpdatePlayer(ctx, &room.UpdatePlayerParams{RoomId: "gone", Status: 1})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestHostLease(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	setTestRoom(t, s, "abc", clock.Now())

	lease, err := s.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{RoomId: "abc", ParticipantId: "p1", TTL: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "p1", lease.ParticipantId)

	_, err = s.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{RoomId: "abc", ParticipantId: "p2", TTL: 10 * time.Second})
	assert.ErrorIs(t, err, room.ErrHostLeaseTaken)

	_, err = s.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{RoomId: "abc", ParticipantId: "p1", TTL: 10 * time.Second})
	require.NoError(t, err)

	got, err := s.GetHostLease(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ParticipantId)

	clock.Advance(11 * time.Second)

	_, err = s.GetHostLease(ctx, "abc")
	assert.ErrorIs(t, err, room.ErrHostLeaseNotFound)

	lease, err = s.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{RoomId: "abc", ParticipantId: "p2", TTL: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "p2", lease.ParticipantId)

	assert.ErrorIs(t, s.ReleaseHostLease(ctx, &room.ReleaseHostLeaseParams{RoomId: "abc", ParticipantId: "p1"}), room.ErrHostLeaseNotFound)
	require.NoError(t, s.ReleaseHostLease(ctx, &room.ReleaseHostLeaseParams{RoomId: "abc", ParticipantId: "p2"}))

	_, err = s.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{RoomId: "gone", ParticipantId: "p2", TTL: time.Second})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}
