package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cowatch/server/internal/service/room"
	"github.com/cowatch/server/pkg/wsrouter"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// queued replies per connection
	outputBuffer = 8
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// watchRoom streams room snapshots over a websocket. The snapshot is sent on
// connect and again whenever it changes; the room is checked every feed
// interval. Clients may send ALIVE and GET_STATE.
func (c controller) watchRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")

	state, err := c.roomService.GetRoomState(r.Context(), roomId)
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan Output, outputBuffer)
	push := func(ctx context.Context, o Output) error {
		select {
		case out <- o:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	router := wsrouter.New()
	router.Use(c.wsRequestIdMw(), c.loggerWSMw())
	router.Handle("ALIVE", func(context.Context, json.RawMessage) error {
		return nil
	})
	router.Handle("GET_STATE", func(ctx context.Context, _ json.RawMessage) error {
		state, err := c.roomService.GetRoomState(ctx, roomId)
		if err != nil {
			return err
		}

		return push(ctx, Output{Type: "ROOM_STATE", Payload: state})
	})
	router.OnError(func(ctx context.Context, err error) {
		c.logger.InfoContext(ctx, "websocket message failed", "error", err)
		_ = push(ctx, Output{Type: "ERROR", Payload: map[string]string{"error": err.Error()}})
	})

	go func() {
		defer cancel()
		if err := router.ServeConn(ctx, conn); err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.logger.DebugContext(ctx, "websocket read loop stopped", "error", err)
		}
	}()

	c.logger.InfoContext(ctx, "websocket connected")
	c.feed(ctx, conn, roomId, state, out)
	c.logger.InfoContext(ctx, "websocket disconnected")
}

// feed owns every write to conn.
func (c controller) feed(ctx context.Context, conn *websocket.Conn, roomId string, initial room.RoomState, out <-chan Output) {
	last, err := c.writeOutput(conn, Output{Type: "ROOM_STATE", Payload: initial})
	if err != nil {
		c.logger.InfoContext(ctx, "failed to write room state", "error", err)
		return
	}

	ticker := c.clock.NewTicker(c.feedInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case o := <-out:
			if _, err := c.writeOutput(conn, o); err != nil {
				c.logger.InfoContext(ctx, "failed to write output", "error", err)
				return
			}
		case <-ticker.Chan():
			state, err := c.roomService.GetRoomState(ctx, roomId)
			if err != nil {
				if errors.Is(err, room.ErrRoomNotFound) {
					_, _ = c.writeOutput(conn, Output{Type: "ROOM_CLOSED", Payload: map[string]string{"room_id": roomId}})
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room closed"),
						time.Now().Add(writeWait))
					return
				}
				c.logger.WarnContext(ctx, "failed to get room state", "error", err)
				continue
			}

			data, err := json.Marshal(Output{Type: "ROOM_STATE", Payload: state})
			if err != nil {
				c.logger.ErrorContext(ctx, "failed to marshal room state", "error", err)
				continue
			}

			if bytes.Equal(data, last) {
				continue
			}

			if err := c.writeMessage(conn, data); err != nil {
				c.logger.InfoContext(ctx, "failed to write room state", "error", err)
				return
			}
			last = data
		}
	}
}

// writeOutput writes o and returns its encoded form.
func (c controller) writeOutput(conn *websocket.Conn, o Output) ([]byte, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}

	return data, c.writeMessage(conn, data)
}

func (c controller) writeMessage(conn *websocket.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}
