package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/pulsometro/cache"
	"github.com/danielhkuo/pulsometro/cliparse"
	"github.com/danielhkuo/pulsometro/db"
	"github.com/danielhkuo/pulsometro/eventlog"
	"github.com/danielhkuo/pulsometro/fingerprint"
	"github.com/danielhkuo/pulsometro/middleware"
	"github.com/danielhkuo/pulsometro/processor"
	"github.com/danielhkuo/pulsometro/router"
	"github.com/danielhkuo/pulsometro/store"
	"github.com/danielhkuo/pulsometro/views"
)

func main() {
	// A missing .env is fine; real deployments use the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the primary store
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn, cfg.DatabaseType); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	redisPool := db.NewRedisPool(cfg.RedisURL)
	defer redisPool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.RunsAPI() {
		server := &http.Server{
			Handler: middleware.CORS(router.NewRouter(dbConn, redisPool, cfg)),
			Addr:    ":" + strconv.Itoa(cfg.Port),
		}

		g.Go(func() error {
			slog.Info("Listening", "port", cfg.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if cfg.RunsWorkers() {
		st := store.New(dbConn)
		log := eventlog.New(redisPool)
		sync := views.NewSynchronizer(st, cache.New(redisPool, cfg.ListCacheTTL, cfg.PollCacheTTL, cfg.HistoryLimit))
		proc := processor.New(st, sync, log, fingerprint.New(cfg.HMACPepper), cfg.StreamName, cfg.ConsumerGroup)

		pool := processor.NewPool(proc, log, processor.WorkerConfig{
			Stream:    cfg.StreamName,
			Group:     cfg.ConsumerGroup,
			BatchSize: cfg.BatchSize,
			Block:     cfg.BlockTimeout,
			ClaimIdle: cfg.ClaimIdle,
		}, cfg.Workers)

		g.Go(func() error {
			slog.Info("Starting vote processors", "workers", cfg.Workers, "stream", cfg.StreamName)
			return pool.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("Server closed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server closed")
}
