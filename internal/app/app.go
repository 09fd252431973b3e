package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/classroom-quiz/internal/auth"
	"github.com/gokatarajesh/classroom-quiz/internal/auth/jwt"
	"github.com/gokatarajesh/classroom-quiz/internal/config"
	"github.com/gokatarajesh/classroom-quiz/internal/db/queries"
	"github.com/gokatarajesh/classroom-quiz/internal/db/repository"
	"github.com/gokatarajesh/classroom-quiz/internal/events"
	"github.com/gokatarajesh/classroom-quiz/internal/gateway"
	"github.com/gokatarajesh/classroom-quiz/internal/leaderboard"
	"github.com/gokatarajesh/classroom-quiz/internal/logging"
	"github.com/gokatarajesh/classroom-quiz/internal/question"
	"github.com/gokatarajesh/classroom-quiz/internal/question/generator"
	"github.com/gokatarajesh/classroom-quiz/internal/server"
	"github.com/gokatarajesh/classroom-quiz/internal/session"
	ws "github.com/gokatarajesh/classroom-quiz/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, bus, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	bus            *events.Bus
	hub            *ws.Hub
	sessions       *session.Manager
	broadcaster    *gateway.Broadcaster
	forwarder      *events.Forwarder
	snapshotWorker *leaderboard.SnapshotWorker
	bgCancels      []context.CancelFunc
}

// New bootstraps logger, Postgres, Redis, the session runtime and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.Logging.Level)
	logger.Info().Msg("starting application bootstrap")

	policy, err := session.ParseMatchPolicy(cfg.Session.ShortAnswerMatch)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	store := queries.New(pool)
	sessionRepo := repository.NewSessionRepository(store)
	questionRepo := repository.NewQuestionRepository(store)
	snapshotRepo := repository.NewSnapshotRepository(store)

	var qgen question.Generator
	if cfg.QuestionGen.URL != "" {
		qgen = generator.NewClient(generator.Config{
			URL:     cfg.QuestionGen.URL,
			APIKey:  cfg.QuestionGen.APIKey,
			Timeout: cfg.QuestionGen.HTTPTimeout,
		}, logger)
	} else {
		logger.Warn().Msg("question generator not configured (QGEN_URL empty); generation endpoint disabled")
	}

	questionSvc := question.NewService(
		questionRepo,
		question.NewCache(redisClient, cfg.Questions.CacheTTL),
		qgen,
		question.ServiceOptions{
			DefaultPoints:    cfg.Session.DefaultPoints,
			DefaultTimeLimit: cfg.Session.DefaultQuestionSeconds,
			FetchTimeout:     cfg.Questions.FetchTimeout,
		},
		logger,
	)

	bus := events.NewBus(cfg.Events.BufferSize, logger)

	var forwarder *events.Forwarder
	if len(cfg.Events.KafkaBrokers) > 0 {
		forwarder, err = events.NewKafkaForwarder(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, logger)
		if err != nil {
			return nil, err
		}
		logger.Info().Strs("brokers", cfg.Events.KafkaBrokers).Msg("kafka forwarder enabled")
	}

	stateStore := session.NewStateStore(redisClient, cfg.Session.StateTTL, cfg.Session.LockTTL, logger)
	sessions := session.NewManager(
		sessionRepo,
		questionSvc,
		sessionRepo,
		stateStore,
		bus,
		session.Options{
			TickInterval:           cfg.Session.TickInterval,
			RevealDelay:            cfg.Session.RevealDelay,
			MatchPolicy:            policy,
			AdvanceWhenAllAnswered: cfg.Session.AdvanceWhenAllAnswered,
		},
		logger,
	)

	verifier := jwt.NewVerifier([]byte(cfg.Security.JWTSecret), cfg.Security.JWTIssuer)
	hub := ws.NewHub(logger)
	broadcaster := gateway.NewBroadcaster(bus, hub, logger)
	wsHandler := gateway.NewWSHandler(sessions, hub, verifier, server.NewWSUpgrader(cfg.Security.AllowedOrigins), logger)

	var restGenerator gateway.QuestionGenerator
	if qgen != nil {
		restGenerator = questionSvc
	}
	restHandlers := gateway.NewRESTHandlers(sessions, restGenerator, logger)
	lbHTTPHandler := leaderboard.NewHTTPHandler(sessions, sessionRepo, snapshotRepo, logger)

	var snapshotWorker *leaderboard.SnapshotWorker
	if interval := cfg.Leaderboard.SnapshotInterval; interval > 0 {
		snapshotWorker = leaderboard.NewSnapshotWorker(sessions, snapshotRepo, interval, logger)
	}

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, server.Routes{
		Auth:        auth.Middleware(verifier, logger),
		WebSocket:   wsHandler.HandleWebSocket,
		Sessions:    restHandlers,
		Leaderboard: lbHTTPHandler.HandleGet,
	})

	return &Application{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		http:           apiServer,
		bus:            bus,
		hub:            hub,
		sessions:       sessions,
		broadcaster:    broadcaster,
		forwarder:      forwarder,
		snapshotWorker: snapshotWorker,
		bgCancels:      make([]context.CancelFunc, 0, 2),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	if err := a.broadcaster.Start(); err != nil {
		return fmt.Errorf("start broadcaster: %w", err)
	}
	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	a.shutdown()
	return runErr
}

func (a *Application) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.sessions.Shutdown(shutdownCtx)
	a.hub.CloseAll()
	a.broadcaster.Stop()

	for _, cancel := range a.bgCancels {
		cancel()
	}

	if err := a.bus.Close(); err != nil {
		a.logger.Error().Err(err).Msg("event bus shutdown error")
	}
	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.forwarder != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.forwarder.Run(bgCtx, a.bus); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("event forwarder stopped")
			}
		}()
	}

	if a.snapshotWorker != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.snapshotWorker.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("leaderboard snapshot worker stopped")
			}
		}()
	}
}
