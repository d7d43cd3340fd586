package report

import (
	"errors"
	"fmt"
	"time"
)

var ErrSelfReport = errors.New("cannot report yourself")

// CooldownError is returned when the same reporter files against the same
// actor again before the cooldown has elapsed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("report cooldown active, %ds remaining", e.RemainingSeconds())
}

// RemainingSeconds rounds the remaining cooldown up to whole seconds.
func (e *CooldownError) RemainingSeconds() int {
	return int((e.Remaining + time.Second - 1) / time.Second)
}
