package redis

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cowatch/server/internal/repository/room"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, slog.Default(), clockwork.NewFakeClockAt(testLeaseClockAt)), s
}

var testLeaseClockAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setTestRoom(t *testing.T, r *repo, roomId string, createdAt time.Time) {
	t.Helper()

	err := r.SetRoom(context.Background(), &room.SetRoomParams{
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
	r, _ := newTestRepo(t)
	ctx := context.Background()
	createdAt := time.Now().Truncate(time.Millisecond)

	setTestRoom(t, r, "abc", createdAt)

	got, err := r.GetRoom(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.RoomId)
	assert.Equal(t, "dQw4w9WgXcQ", got.VideoId)
	assert.Equal(t, "host", got.HostUsername)
	assert.True(t, got.CreatedAt.Equal(createdAt))

	err = r.SetRoom(ctx, &room.SetRoomParams{RoomId: "abc", CreatedAt: createdAt, ExpiresAt: createdAt.Add(time.Hour)})
	assert.ErrorIs(t, err, room.ErrRoomAlreadyExists)

	_, err = r.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRoomExpires(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	setTestRoom(t, r, "old", now.Add(-time.Hour))
	setTestRoom(t, r, "new", now)

	ids, err := r.GetRoomIds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids)

	s.FastForward(23*time.Hour + 30*time.Minute)

	ids, err = r.GetRoomIds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids)

	_, err = r.GetRoom(ctx, "old")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRemoveRoom(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()

	setTestRoom(t, r, "abc", time.Now())
	require.NoError(t, r.SetParticipant(ctx, &room.SetParticipantParams{RoomId: "abc", ParticipantId: "p1", Username: "ann", JoinedAt: time.Now()}))
	require.NoError(t, r.AddMessage(ctx, &room.AddMessageParams{RoomId: "abc", Message: room.Message{Id: "m1", Message: "hi"}}))

	require.NoError(t, r.RemoveRoom(ctx, "abc"))
	for _, key := range []string{"room:abc", "room:abc:player", "room:abc:participants", "room:abc:participant:p1", "room:abc:messages"} {
		assert.False(t, s.Exists(key), key)
	}
	assert.ErrorIs(t, r.RemoveRoom(ctx, "abc"), room.ErrRoomNotFound)
}

func TestParticipants(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	err := r.SetParticipant(ctx, &room.SetParticipantParams{RoomId: "nope", ParticipantId: "p1", Username: "ann", JoinedAt: now})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	setTestRoom(t, r, "abc", now)
	require.NoError(t, r.SetParticipant(ctx, &room.SetParticipantParams{RoomId: "abc", ParticipantId: "p2", Username: "bob", JoinedAt: now.Add(time.Second)}))
	require.NoError(t, r.SetParticipant(ctx, &room.SetParticipantParams{RoomId: "abc", ParticipantId: "p1", Username: "ann", JoinedAt: now}))

	participants, err := r.GetParticipants(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, "ann", participants[0].Username)
	assert.Equal(t, "bob", participants[1].Username)

	count, err := r.GetParticipantsCount(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	p, err := r.GetParticipant(ctx, &room.GetParticipantParams{RoomId: "abc", ParticipantId: "p2"})
	require.NoError(t, err)
	assert.Equal(t, "bob", p.Username)

	require.NoError(t, r.RemoveParticipant(ctx, &room.RemoveParticipantParams{RoomId: "abc", ParticipantId: "p1"}))
	assert.ErrorIs(t, r.RemoveParticipant(ctx, &room.RemoveParticipantParams{RoomId: "abc", ParticipantId: "p1"}), room.ErrParticipantNotFound)

	_, err = r.GetParticipant(ctx, &room.GetParticipantParams{RoomId: "abc", ParticipantId: "p1"})
	assert.ErrorIs(t, err, room.ErrParticipantNotFound)
}

func TestMessagesAreCapped(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	setTestRoom(t, r, "abc", time.Now())

	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, r.AddMessage(ctx, &room.AddMessageParams{
			RoomId:  "abc",
			Message: room.Message{Id: id, Username: "ann", Message: "text " + id},
			Limit:   2,
		}))
	}

	messages, err := r.GetMessages(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m2", messages[0].Id)
	assert.Equal(t, "m3", messages[1].Id)
}

func TestReactionsSince(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	setTestRoom(t, r, "abc", now)

	require.NoError(t, r.AddReaction(ctx, &room.AddReactionParams{RoomId: "abc", Reaction: room.Reaction{Id: "r1", Emoji: "🔥", CreatedAt: now.Add(-10 * time.Second).UnixMilli()}}))
	require.NoError(t, r.AddReaction(ctx, &room.AddReactionParams{RoomId: "abc", Reaction: room.Reaction{Id: "r2", Emoji: "🎉", CreatedAt: now.UnixMilli()}}))

	reactions, err := r.GetReactions(ctx, &room.GetReactionsParams{RoomId: "abc", Since: now.Add(-4 * time.Second)})
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, "r2", reactions[0].Id)

	err = r.AddReaction(ctx, &room.AddReactionParams{RoomId: "gone", Reaction: room.Reaction{Id: "r3"}})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestUpdatePlayerIncrementsSeq(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	setTestRoom(t, r, "abc", time.Now())

	player, err := r.GetPlayer(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, room.Player{Status: -1}, player)

	first, err := r.UpdatePlayer(ctx, &room.UpdatePlayerParams{RoomId: "abc", Status: 1, Time: 12.5, UpdatedAt: time.Now()})
	require.NoError(t, err)
	second, err := r.UpdatePlayer(ctx, &room.UpdatePlayerParams{RoomId: "abc", Status: 2, Time: 14.25, UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)

	player, err = r.GetPlayer(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 2, player.Status)
	assert.Equal(t, 14.25, player.Time)
	assert.Equal(t, int64(2), player.Seq)

	_, err = r.UpdatePlayer(ctx, &room.UpdatePlayerParams{RoomId: "gone", Status: 1})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestHostLease(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	setTestRoom(t, r, "abc", time.Now())

	lease, err := r.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{RoomId: "abc", ParticipantId: "p1", TTL: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "p1", lease.ParticipantId)
	assert.Equal(t, testLeaseClockAt.Add(10*time.Second), lease.ExpiresAt)

	_, err = r.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{RoomId: "abc", ParticipantId: "p2", TTL: 10 * time.Second})
	assert.ErrorIs(t, err, room.ErrHostLeaseTaken)

	_, err = r.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{RoomId: "abc", ParticipantId: "p1", TTL: 10 * time.Second})
	require.NoError(t, err, "holder renews its own lease")

	got, err := r.GetHostLease(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ParticipantId)
	assert.Equal(t, testLeaseClockAt.Add(10*time.Second), got.ExpiresAt)

	s.FastForward(11 * time.Second)

	_, err = r.GetHostLease(ctx, "abc")
	assert.ErrorIs(t, err, room.ErrHostLeaseNotFound)

	lease, err = r.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{RoomId: "abc", ParticipantId: "p2", TTL: 10 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "p2", lease.ParticipantId)

	assert.ErrorIs(t, r.ReleaseHostLease(ctx, &room.ReleaseHostLeaseParams{RoomId: "abc", ParticipantId: "p1"}), room.ErrHostLeaseNotFound)
	require.NoError(t, r.ReleaseHostLease(ctx, &room.ReleaseHostLeaseParams{RoomId: "abc", ParticipantId: "p2"}))

	_, err = r.AcquireHostLease(ctx, &room.AcquireHostLeaseParams{RoomId: "gone", ParticipantId: "p2", TTL: time.Second})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}
