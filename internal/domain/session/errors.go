package session

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotParticipant   = errors.New("actor is not a session participant")
	ErrSessionNotActive = errors.New("session is not active")
)
