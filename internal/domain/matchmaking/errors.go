package matchmaking

import "errors"

var (
	// ErrNoMatchYet means no compatible partner could be claimed right now.
	// Workers retry on the next queue event; clients poll or wait on the bus.
	ErrNoMatchYet = errors.New("no compatible partner available yet")

	ErrNotQueued = errors.New("actor is not in the queue")
)
