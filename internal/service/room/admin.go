package room

import (
	"cmp"
	"context"
	"errors"
	"fmt"

	"github.com/cowatch/server/internal/repository/room"
	"golang.org/x/exp/slices"
)

// ListRooms returns a summary of every live room, newest first.
func (s service) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	s.logger.DebugContext(ctx, "called")

	roomIds, err := s.roomRepo.GetRoomIds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get room ids: %w", err)
	}

	rooms := make([]RoomSummary, 0, len(roomIds))
	for _, roomId := range roomIds {
		r, err := s.roomRepo.GetRoom(ctx, roomId)
		if err != nil {
			// expired between the two reads
			if errors.Is(err, room.ErrRoomNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to get room: %w", err)
		}

		count, err := s.roomRepo.GetParticipantsCount(ctx, roomId)
		if err != nil {
			return nil, fmt.Errorf("failed to get participants count: %w", err)
		}

		rooms = append(rooms, RoomSummary{
			RoomId:            r.RoomId,
			VideoId:           r.VideoId,
			VideoTitle:        r.VideoTitle,
			HostUsername:      r.HostUsername,
			ParticipantsCount: count,
			CreatedAt:         r.CreatedAt.UnixMilli(),
			ExpiresAt:         r.ExpiresAt.UnixMilli(),
		})
	}

	slices.SortFunc(rooms, func(a, b RoomSummary) int {
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.RoomId, b.RoomId)
	})

	return rooms, nil
}

func (s service) DeleteRoom(ctx context.Context, roomId string) error {
	s.logger.DebugContext(ctx, "called", "room_id", roomId)

	if err := s.roomRepo.RemoveRoom(ctx, roomId); err != nil {
		return mapRepoErr(err)
	}
	s.invalidate(roomId)

	s.logger.InfoContext(ctx, "room deleted", "room_id", roomId)

	return nil
}
