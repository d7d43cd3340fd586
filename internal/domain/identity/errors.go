package identity

import "errors"

var (
	ErrUnauthorized = errors.New("invalid or banned identity")
	ErrNoIdentity   = errors.New("anonymous caller has no guest identity")
	ErrAutoBanned   = errors.New("actor was banned for crossing the report threshold")
)
