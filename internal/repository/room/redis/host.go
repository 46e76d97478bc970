package redis

import (
	"context"
	"fmt"

	"github.com/cowatch/server/internal/repository/room"
)

// AcquireHostLease grants or extends the host lease when it is free or
// already held by the participant.
func (r repo) AcquireHostLease(ctx context.Context, params *room.AcquireHostLeaseParams) (room.HostLease, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	exists, err := r.IsRoomExists(ctx, params.RoomId)
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.HostLease{}, err
	}

	if !exists {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.HostLease{}, room.ErrRoomNotFound
	}

	holder, err := r.acquireLeaseScript.Run(ctx, r.rc,
		[]string{r.getHostKey(params.RoomId)},
		params.ParticipantId, params.TTL.Milliseconds(),
	).Text()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.HostLease{}, fmt.Errorf("failed to acquire host lease: %w", err)
	}

	if holder != params.ParticipantId {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrHostLeaseTaken, "holder", holder)
		return room.HostLease{}, room.ErrHostLeaseTaken
	}

	return room.HostLease{
		ParticipantId: holder,
		ExpiresAt:     r.clock.Now().Add(params.TTL),
	}, nil
}

func (r repo) GetHostLease(ctx context.Context, roomId string) (room.HostLease, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	hostKey := r.getHostKey(roomId)

	pipe := r.rc.Pipeline()
	getCmd := pipe.Get(ctx, hostKey)
	ttlCmd := pipe.PTTL(ctx, hostKey)
	if _, err := pipe.Exec(ctx); err != nil && !isNil(err) {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.HostLease{}, err
	}

	holder, err := getCmd.Result()
	if err != nil {
		if isNil(err) {
			return room.HostLease{}, room.ErrHostLeaseNotFound
		}
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.HostLease{}, err
	}

	return room.HostLease{
		ParticipantId: holder,
		ExpiresAt:     r.clock.Now().Add(ttlCmd.Val()),
	}, nil
}

func (r repo) ReleaseHostLease(ctx context.Context, params *room.ReleaseHostLeaseParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	released, err := r.releaseLeaseScript.Run(ctx, r.rc,
		[]string{r.getHostKey(params.RoomId)},
		params.ParticipantId,
	).Int()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to release host lease: %w", err)
	}

	if released == 0 {
		return room.ErrHostLeaseNotFound
	}

	return nil
}
