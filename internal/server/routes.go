package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"resourcerush/internal/broadcast"
	"resourcerush/internal/config"
	"resourcerush/internal/db"
	"resourcerush/internal/events"
	"resourcerush/internal/game"
	"resourcerush/internal/metrics"
	"resourcerush/internal/records"
	"resourcerush/internal/redisstore"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() error {
	_ = godotenv.Load()
	appCfg := config.Load()
	setupLogger(appCfg)
	logger := log.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, closeGateway := openGateway(ctx, appCfg)
	defer closeGateway()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Workers outlive the signal context so queued writes are flushed on shutdown.
	workCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	mirror := records.NewMirror(gw, logger, 0)
	mirror.OnDrop = m.MirrorDrop
	mirror.OnError = m.MirrorError
	go mirror.Run(workCtx)

	bus := events.NewBus()
	sinks := []events.Sink{m}
	if appCfg.NatsURL != "" {
		nc, err := events.ConnectNATS(appCfg.NatsURL, logger)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, lifecycle events stay local")
		} else {
			defer nc.Drain()
			sinks = append(sinks, events.NewNATSSink(nc, "", logger))
			log.Info().Str("url", appCfg.NatsURL).Msg("publishing lifecycle events to NATS")
		}
	}
	go bus.Run(workCtx, sinks...)

	bc := broadcast.NewBroadcaster(logger)
	coord := game.NewCoordinator(gameConfig(appCfg), game.Deps{
		Broadcaster: bc,
		Recorder:    mirror,
		Bus:         bus,
		Metrics:     m,
		Logger:      logger,
	})

	rehydrateCtx, cancelRehydrate := context.WithTimeout(ctx, 30*time.Second)
	n, err := coord.Rehydrate(rehydrateCtx, gw)
	cancelRehydrate()
	if err != nil {
		log.Warn().Err(err).Msg("rehydration failed, starting empty")
	} else {
		log.Info().Int("rooms", n).Msg("rehydrated rooms")
	}
	go coord.RunJanitor(ctx)

	srv := &Server{
		Coord:       coord,
		Broadcaster: bc,
		Gateway:     gw,
		Metrics:     m,
		Config:      appCfg,
		Log:         logger.With().Str("component", "http").Logger(),
	}

	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + appCfg.Port,
		Handler:           srv.Handler(reg),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			coord.Stop()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	coord.Stop()
	if err := mirror.Flush(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("persistence queue not fully flushed")
	}
	return nil
}

// Handler builds the HTTP routes wrapped in CORS.
func (s *Server) Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleGetRoom)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: s.Config.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

func setupLogger(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// openGateway picks the durable mirror: PostgreSQL when DATABASE_URL is set,
// else Redis when REDIS_ADDR is set, else process memory. A backend that
// cannot be reached falls back to memory.
func openGateway(ctx context.Context, cfg config.Config) (records.Gateway, func()) {
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, running with in-memory records")
			return records.NewMemory(nil), func() {}
		}
		if err := database.Migrate(); err != nil {
			log.Error().Err(err).Msg("migration failed")
		}
		return database, func() { database.Close() }
	}

	if cfg.RedisAddr != "" {
		client, err := redisstore.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running with in-memory records")
			return records.NewMemory(nil), func() {}
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
		store := redisstore.New(client, "", nil)
		return store, func() { store.Close() }
	}

	log.Info().Msg("DATABASE_URL and REDIS_ADDR not set, running with in-memory records")
	return records.NewMemory(nil), func() {}
}

func gameConfig(cfg config.Config) game.Config {
	gc := game.DefaultConfig()
	gc.MaxRounds = cfg.MaxRounds
	gc.RoundDuration = time.Duration(cfg.RoundDuration) * time.Second
	gc.TickInterval = cfg.TickInterval
	gc.MarketInterval = cfg.MarketInterval
	gc.IdleTimeout = cfg.IdleTimeout
	gc.RematchDelay = cfg.RematchDelay
	gc.Retention = cfg.Retention
	gc.CleanupInterval = cfg.CleanupInterval
	return gc
}
