// matchworker runs the pairing engine as a standalone process. It is safe to
// run next to the worker embedded in the API server: the queue claim is a
// conditional write, so a pair is only ever created once, and the NATS queue
// group splits events between instances.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/config"
	"github.com/duetchat/duet-api/internal/domain/matchmaking"
	"github.com/duetchat/duet-api/internal/domain/relationships"
	"github.com/duetchat/duet-api/internal/domain/session"
	"github.com/duetchat/duet-api/internal/pkg/database"
	"github.com/duetchat/duet-api/internal/pkg/logger"
	"github.com/duetchat/duet-api/internal/pkg/messaging"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().Str("env", cfg.Env).Msg("Starting duet match worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	bus, err := messaging.Connect(messaging.DefaultConfig(cfg.NATSURL, "duet-matchworker"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer bus.Close()

	queueRepo := matchmaking.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	blockRepo := relationships.NewRepository(db)

	blockService := relationships.NewService(blockRepo)
	matchService := matchmaking.NewService(queueRepo, sessionRepo, blockService, bus, cfg.BaseWaitEstimate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := matchmaking.NewWorker(matchService, bus, cfg.PairSweepInterval)
	if err := worker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start pairing worker")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Match worker shutting down")
	cancel()
}
