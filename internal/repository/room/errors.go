package room

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomAlreadyExists   = errors.New("room already exists")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrHostLeaseTaken      = errors.New("host lease is held by another participant")
	ErrHostLeaseNotFound   = errors.New("host lease not found")
)
