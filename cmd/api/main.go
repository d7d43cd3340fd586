package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/duetchat/duet-api/internal/config"
	"github.com/duetchat/duet-api/internal/domain/identity"
	"github.com/duetchat/duet-api/internal/domain/matchmaking"
	"github.com/duetchat/duet-api/internal/domain/message"
	"github.com/duetchat/duet-api/internal/domain/realtime"
	"github.com/duetchat/duet-api/internal/domain/relationships"
	"github.com/duetchat/duet-api/internal/domain/report"
	"github.com/duetchat/duet-api/internal/domain/safety"
	"github.com/duetchat/duet-api/internal/domain/session"
	"github.com/duetchat/duet-api/internal/metrics"
	"github.com/duetchat/duet-api/internal/middleware"
	"github.com/duetchat/duet-api/internal/pkg/database"
	"github.com/duetchat/duet-api/internal/pkg/jwt"
	"github.com/duetchat/duet-api/internal/pkg/logger"
	"github.com/duetchat/duet-api/internal/pkg/messaging"
	"github.com/duetchat/duet-api/internal/pkg/ratelimit"
	pkgresponse "github.com/duetchat/duet-api/internal/pkg/response"
)

const actorCacheMaxAge = 30 * time.Second

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting duet API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.Migrate(db, "migrations"); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	bus, err := messaging.Connect(messaging.DefaultConfig(cfg.NATSURL, "duet-api"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer bus.Close()

	jwtService := jwt.NewService(cfg.JWTSecret, 15*time.Minute)
	limiter := ratelimit.NewLimiter(redis)

	// ---------- Repositories ----------
	identityRepo := identity.NewRepository(db)
	blockRepo := relationships.NewRepository(db)
	queueRepo := matchmaking.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	messageRepo := message.NewRepository(db)
	reportRepo := report.NewRepository(db)

	// ---------- Identity ----------
	actorCache := identity.NewCache(actorCacheMaxAge)
	resolver := identity.NewResolver(identityRepo, jwtService, actorCache, redis, cfg.GuestTTL)

	// ---------- Safety gate ----------
	var classifier safety.Classifier = safety.NewPatternClassifier()
	if cfg.ClassifierURL != "" {
		classifier = safety.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout)
	}
	gate := safety.NewGate(classifier)

	// ---------- Services ----------
	blockService := relationships.NewService(blockRepo)
	sessionService := session.NewService(sessionRepo)
	messageService := message.NewService(messageRepo, sessionRepo, gate, limiter, bus)
	sessionService.SetMessenger(messageService)

	matchService := matchmaking.NewService(queueRepo, sessionRepo, blockService, bus, cfg.BaseWaitEstimate)
	reportService := report.NewService(reportRepo, identityRepo, sessionService, resolver,
		cfg.ReportBanThreshold, cfg.ReportCooldown, cfg.AccountBanDuration)

	// ---------- Embedded pairing worker ----------
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	worker := matchmaking.NewWorker(matchService, bus, cfg.PairSweepInterval)
	if err := worker.Start(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start pairing worker")
	}

	// ---------- Handlers ----------
	identityHandler := identity.NewHandler(resolver, limiter)
	blockHandler := relationships.NewHandler(blockService)
	matchHandler := matchmaking.NewHandler(matchService, limiter)
	sessionHandler := session.NewHandler(sessionService)
	messageHandler := message.NewHandler(messageService)
	reportHandler := report.NewHandler(reportService)
	realtimeHandler := realtime.NewHandler(bus, sessionRepo, messageService, cfg.AllowedOrigins)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/", identityHandler.Routes())
		r.Mount("/blocks", blockHandler.Routes(resolver))
		r.Mount("/queue", matchHandler.Routes(resolver))
		r.Mount("/sessions", sessionHandler.Routes(resolver,
			matchHandler.SessionRoutes(),
			messageHandler.SessionRoutes(),
		))
		r.Mount("/reports", reportHandler.Routes(resolver))
		r.Mount("/ws", realtimeHandler.Routes(resolver))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
