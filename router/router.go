// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/gomodule/redigo/redis"

	"github.com/danielhkuo/pulsometro/cache"
	"github.com/danielhkuo/pulsometro/cliparse"
	"github.com/danielhkuo/pulsometro/dedup"
	"github.com/danielhkuo/pulsometro/eventlog"
	"github.com/danielhkuo/pulsometro/fingerprint"
	"github.com/danielhkuo/pulsometro/handlers"
	"github.com/danielhkuo/pulsometro/middleware"
	"github.com/danielhkuo/pulsometro/store"
	"github.com/danielhkuo/pulsometro/views"
	"github.com/danielhkuo/pulsometro/voting"
)

func NewRouter(db *sql.DB, pool *redis.Pool, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize components
	st := store.New(db)
	sync := views.NewSynchronizer(st, cache.New(pool, cfg.ListCacheTTL, cfg.PollCacheTTL, cfg.HistoryLimit))
	votes := voting.NewService(
		st,
		dedup.NewBarrier(pool, cfg.DedupTTL, cfg.DedupFailOpen),
		eventlog.New(pool),
		fingerprint.New(cfg.HMACPepper),
		cfg.StreamName,
	)

	// Initialize handlers
	voteHandler := handlers.NewVoteHandler(votes)
	pollHandler := handlers.NewPollHandler(sync)
	adminHandler := handlers.NewAdminHandler(st, sync)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Public reads
	mux.HandleFunc("GET /api/polls", middleware.WithLogging(pollHandler.ListPolls))
	mux.HandleFunc("GET /api/polls/{id}", middleware.WithLogging(pollHandler.GetPoll))

	// Voting
	mux.HandleFunc("POST /api/polls/{id}/vote", middleware.WithLogging(voteHandler.SubmitVote))

	// Poll administration
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdminKey(cfg.AdminKey, h))
	}
	mux.HandleFunc("POST /api/admin/polls", admin(adminHandler.CreatePoll))
	mux.HandleFunc("POST /api/admin/polls/{id}/activate", admin(adminHandler.ActivatePoll))
	mux.HandleFunc("POST /api/admin/polls/{id}/deactivate", admin(adminHandler.DeactivatePoll))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pulsometro API v1"))
	})

	return mux
}
