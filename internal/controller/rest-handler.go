package controller

import (
	"net/http"

	"github.com/cowatch/server/internal/playback"
	"github.com/cowatch/server/internal/service/room"
	"github.com/cowatch/server/pkg/rest"
	"github.com/go-chi/chi/v5"
)

type createRoomRequest struct {
	VideoId  string `json:"video_id" validate:"required,len=11"`
	Username string `json:"username" validate:"required,min=1,max=32"`
}

type createRoomResponse struct {
	RoomId        string         `json:"room_id"`
	ParticipantId string         `json:"participant_id"`
	Token         string         `json:"token"`
	Room          room.RoomState `json:"room"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !c.readAndValidate(w, r, &req) {
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		VideoId:  req.VideoId,
		Username: req.Username,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createRoomResponse{
		RoomId:        resp.RoomId,
		ParticipantId: resp.ParticipantId,
		Token:         resp.Token,
		Room:          resp.Room,
	}})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	state, err := c.roomService.GetRoomState(r.Context(), chi.URLParam(r, "room-id"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": state})
}

func (c controller) getPlayer(w http.ResponseWriter, r *http.Request) {
	report, err := c.roomService.GetPlayerState(r.Context(), chi.URLParam(r, "room-id"))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": report})
}

type updatePlayerRequest struct {
	Status *playback.Status `json:"status" validate:"required"`
	Time   *float64         `json:"time" validate:"required,gte=0"`
}

func (c controller) updatePlayer(w http.ResponseWriter, r *http.Request) {
	token, ok := c.mustToken(w, r)
	if !ok {
		return
	}

	var req updatePlayerRequest
	if !c.readAndValidate(w, r, &req) {
		return
	}

	report, err := c.roomService.UpdatePlayerState(r.Context(), &room.UpdatePlayerStateParams{
		RoomId: chi.URLParam(r, "room-id"),
		Token:  token,
		Status: *req.Status,
		Time:   *req.Time,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": report})
}

type joinRoomRequest struct {
	Username string `json:"username" validate:"required,min=1,max=32"`
}

type joinRoomResponse struct {
	ParticipantId string         `json:"participant_id"`
	Token         string         `json:"token"`
	Room          room.RoomState `json:"room"`
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if !c.readAndValidate(w, r, &req) {
		return
	}

	resp, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomId:   chi.URLParam(r, "room-id"),
		Username: req.Username,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": joinRoomResponse{
		ParticipantId: resp.ParticipantId,
		Token:         resp.Token,
		Room:          resp.Room,
	}})
}

func (c controller) leaveRoom(w http.ResponseWriter, r *http.Request) {
	token, ok := c.mustToken(w, r)
	if !ok {
		return
	}

	if err := c.roomService.LeaveRoom(r.Context(), &room.LeaveRoomParams{
		RoomId: chi.URLParam(r, "room-id"),
		Token:  token,
	}); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c controller) claimHost(w http.ResponseWriter, r *http.Request) {
	token, ok := c.mustToken(w, r)
	if !ok {
		return
	}

	host, err := c.roomService.ClaimHost(r.Context(), &room.ClaimHostParams{
		RoomId: chi.URLParam(r, "room-id"),
		Token:  token,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": host})
}

type addMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=500"`
}

func (c controller) addMessage(w http.ResponseWriter, r *http.Request) {
	token, ok := c.mustToken(w, r)
	if !ok {
		return
	}

	var req addMessageRequest
	if !c.readAndValidate(w, r, &req) {
		return
	}

	message, err := c.roomService.AddMessage(r.Context(), &room.AddMessageParams{
		RoomId:  chi.URLParam(r, "room-id"),
		Token:   token,
		Message: req.Message,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": message})
}

type addReactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

func (c controller) addReaction(w http.ResponseWriter, r *http.Request) {
	token, ok := c.mustToken(w, r)
	if !ok {
		return
	}

	var req addReactionRequest
	if !c.readAndValidate(w, r, &req) {
		return
	}

	reaction, err := c.roomService.AddReaction(r.Context(), &room.AddReactionParams{
		RoomId: chi.URLParam(r, "room-id"),
		Token:  token,
		Emoji:  req.Emoji,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": reaction})
}

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.roomService.ListRooms(r.Context())
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": rooms})
}

func (c controller) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := c.roomService.DeleteRoom(r.Context(), chi.URLParam(r, "room-id")); err != nil {
		c.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
