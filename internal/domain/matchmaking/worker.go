package matchmaking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/pkg/messaging"
)

// Worker drives the pairing engine. It reacts to queue.changed events through
// a NATS queue group, so multiple instances (embedded in the API or standalone)
// split the load, and runs a periodic sweep as a safety net. The claim
// transaction makes concurrent instances safe.
type Worker struct {
	service       *Service
	bus           *messaging.Client
	sweepInterval time.Duration
}

// NewWorker creates a pairing worker
func NewWorker(service *Service, bus *messaging.Client, sweepInterval time.Duration) *Worker {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Second
	}
	return &Worker{
		service:       service,
		bus:           bus,
		sweepInterval: sweepInterval,
	}
}

// Start subscribes to queue events and launches the sweep loop. It returns
// after subscribing; the sweep loop stops when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	err := w.bus.SubscribeQueueChanged(func(data []byte) {
		var event QueueChangedEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Warn().Err(err).Msg("Malformed queue event")
			return
		}
		w.attempt(ctx, identity.Ref{ID: event.ActorID, IsGuest: event.IsGuest})
	})
	if err != nil {
		return err
	}

	go w.sweepLoop(ctx)

	log.Info().Dur("sweep_interval", w.sweepInterval).Msg("Pairing worker started")
	return nil
}

func (w *Worker) attempt(ctx context.Context, actor identity.Ref) {
	if _, err := w.service.AttemptPair(ctx, actor); err != nil && err != ErrNoMatchYet {
		log.Warn().Err(err).Str("actor", actor.Key()).Msg("Pairing attempt failed")
	}
}

func (w *Worker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.service.Sweep(ctx)
		}
	}
}
