package relationships

import "errors"

var (
	ErrBlockNotFound = errors.New("block relation not found")
	ErrSelfBlock     = errors.New("cannot block yourself")
)
