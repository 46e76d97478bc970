package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cowatch/server/internal/service/room"
	"github.com/cowatch/server/pkg/rest"
)

const bearerPrefix = "Bearer "

func (c controller) getBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	return token, token != ""
}

// mustToken writes 401 and reports false when the request carries no token.
func (c controller) mustToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, ok := c.getBearerToken(r)
	if !ok {
		rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "authorization token was not provided"})
		return "", false
	}

	return token, true
}

// readAndValidate decodes the body into dst and validates it, answering the
// request itself on failure.
func (c controller) readAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := rest.ReadJSON(r, dst); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read json", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return false
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		c.logger.InfoContext(r.Context(), "validation failed", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return false
	}

	return true
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, room.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, room.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, room.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, room.ErrHostLeaseTaken), errors.Is(err, room.ErrParticipantsLimitReached):
		status = http.StatusConflict
	case errors.Is(err, room.ErrInvalidPlayerState):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
		rest.WriteJSON(w, status, rest.Envelope{"error": "internal server error"})
		return
	}

	c.logger.InfoContext(r.Context(), "request rejected", "status", status, "error", err)
	rest.WriteJSON(w, status, rest.Envelope{"error": err.Error()})
}
