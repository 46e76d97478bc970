package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cowatch/server/internal/playback"
	"github.com/gorilla/websocket"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
)

// APIError is a non-2xx answer of the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrRoomNotFound
	case http.StatusForbidden:
		return ErrPermissionDenied
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

// Membership identifies a participant of a room.
type Membership struct {
	RoomId        string `json:"room_id"`
	ParticipantId string `json:"participant_id"`
	Token         string `json:"token"`
}

// Client talks to the room API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8080/api/v1.
func New(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

func (c *Client) CreateRoom(ctx context.Context, videoId, username string) (Membership, error) {
	var m Membership
	err := c.do(ctx, http.MethodPost, "/rooms", "", map[string]string{
		"video_id": videoId,
		"username": username,
	}, &m)
	if err != nil {
		return Membership{}, fmt.Errorf("failed to create room: %w", err)
	}

	return m, nil
}

func (c *Client) JoinRoom(ctx context.Context, roomId, username string) (Membership, error) {
	m := Membership{RoomId: roomId}
	err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomId)+"/participants", "", map[string]string{
		"username": username,
	}, &m)
	if err != nil {
		return Membership{}, fmt.Errorf("failed to join room: %w", err)
	}
	m.RoomId = roomId

	return m, nil
}

func (c *Client) LeaveRoom(ctx context.Context, m Membership) error {
	if err := c.do(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(m.RoomId)+"/participants/me", m.Token, nil, nil); err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

// ClaimHost takes the host lease of the room. It fails with ErrConflict while
// another participant holds it.
func (c *Client) ClaimHost(ctx context.Context, m Membership) error {
	if err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(m.RoomId)+"/host", m.Token, nil, nil); err != nil {
		return fmt.Errorf("failed to claim host: %w", err)
	}

	return nil
}

// FetchLatestReport returns the latest host report of the room, or
// ErrRoomNotFound when the room does not exist.
func (c *Client) FetchLatestReport(ctx context.Context, roomId string) (playback.Report, error) {
	var report playback.Report
	if err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomId)+"/player", "", nil, &report); err != nil {
		return playback.Report{}, fmt.Errorf("failed to fetch latest report: %w", err)
	}

	return report, nil
}

// PublishReport overwrites the room report and returns it as stamped by the
// server.
func (c *Client) PublishReport(ctx context.Context, m Membership, report playback.Report) (playback.Report, error) {
	var stamped playback.Report
	err := c.do(ctx, http.MethodPatch, "/rooms/"+url.PathEscape(m.RoomId)+"/player", m.Token, map[string]any{
		"status": report.Status,
		"time":   report.Time,
	}, &stamped)
	if err != nil {
		return playback.Report{}, fmt.Errorf("failed to publish report: %w", err)
	}

	return stamped, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path, token string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.DebugContext(ctx, "request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if dst == nil || len(env.Data) == 0 {
		return nil
	}

	return json.Unmarshal(env.Data, dst)
}

type feedOutput struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Watch follows the websocket feed of the room and calls fn with the player
// report of every snapshot. It returns ErrRoomNotFound once the room is gone
// and nil when ctx is done.
func (c *Client) Watch(ctx context.Context, roomId string, fn func(playback.Report)) error {
	wsURL, err := c.feedURL(roomId)
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to dial room feed: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	for {
		var out feedOutput
		if err := conn.ReadJSON(&out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read room feed: %w", err)
		}

		switch out.Type {
		case "ROOM_STATE":
			var state struct {
				Player playback.Report `json:"player"`
			}
			if err := json.Unmarshal(out.Payload, &state); err != nil {
				c.logger.WarnContext(ctx, "failed to decode room state", "error", err)
				continue
			}
			fn(state.Player)
		case "ROOM_CLOSED":
			return ErrRoomNotFound
		}
	}
}

func (c *Client) feedURL(roomId string) (string, error) {
	u, err := url.Parse(c.baseURL + "/ws/rooms/" + url.PathEscape(roomId))
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	return u.String(), nil
}
