package message

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidContent = errors.New("message content is empty, too long, or not valid UTF-8")
	ErrRateLimited    = errors.New("message rate limit exceeded")
)

// BlockedError is returned when the safety gate withholds a message. The
// message is persisted for audit; the sender gets the reason, the recipient
// gets nothing.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("message blocked: %s", e.Reason)
}
