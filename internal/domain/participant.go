package domain

import (
	"errors"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrUnknownTarget  = errors.New("target participant not in room")
	ErrUnknownSender  = errors.New("sender not in room")
	ErrAlreadyJoined  = errors.New("participant already in room")
	ErrRoomsExhausted = errors.New("room capacity exhausted")
)

// ParticipantID is the authenticated user identity carried by the bearer
// credential. It is opaque to the core beyond equality and routing.
type ParticipantID int64

// Identity is the result of verifying a connection credential.
type Identity struct {
	UserID ParticipantID
	Name   string
}
