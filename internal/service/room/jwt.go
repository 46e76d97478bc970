package room

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify a participant inside one room.
type Claims struct {
	RoomId        string `json:"room_id"`
	ParticipantId string `json:"participant_id"`
	jwt.RegisteredClaims
}

func (s service) generateJWT(roomId, participantId string) (string, error) {
	claims := Claims{
		RoomId:        roomId,
		ParticipantId: participantId,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(s.now().Add(s.cfg.RoomTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(s.cfg.Secret))
}

func (s service) parseJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid || claims.RoomId == "" || claims.ParticipantId == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// authorize resolves the token of a participant of roomId. Tokens outlive
// their room, so a deleted or expired room is reported as ErrRoomNotFound.
func (s service) authorize(ctx context.Context, roomId, tokenString string) (*Claims, error) {
	claims, err := s.parseJWT(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.RoomId != roomId {
		return nil, ErrPermissionDenied
	}

	if err := s.requireRoom(ctx, roomId); err != nil {
		return nil, err
	}

	return claims, nil
}
