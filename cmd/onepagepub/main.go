// onepagepub is a single-binary ActivityPub server. It runs with SQLite by
// default, requiring no external database for self-hosted deployments.
//
// Usage:
//
//	export HOST=https://example.social
//	export OPS_PASSWORD=changeme
//	./onepagepub
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/klppl/onepagepub/internal/activity"
	"github.com/klppl/onepagepub/internal/actor"
	"github.com/klppl/onepagepub/internal/addressing"
	"github.com/klppl/onepagepub/internal/authz"
	"github.com/klppl/onepagepub/internal/config"
	"github.com/klppl/onepagepub/internal/delivery"
	"github.com/klppl/onepagepub/internal/server"
	"github.com/klppl/onepagepub/internal/store"
	"github.com/mattn/go-isatty"
)

func main() {
	cfg := config.Load()

	logBroadcaster := server.NewLogBroadcaster(os.Stdout)
	var logWriter io.Writer = logBroadcaster

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(logWriter, opts)
	} else {
		handler = slog.NewJSONHandler(logWriter, opts)
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting onepagepub", "version", "1.0.0", "host", cfg.Host)

	s, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open database", "error", err, "url", cfg.DatabaseURL)
		os.Exit(1)
	}
	defer s.Close()

	if err := s.Migrate(); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	actors := actor.New(s, cfg)
	addr := addressing.New(s, cfg.Host)
	filter := authz.New(s, addr)
	engine := activity.New(s, addr, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool := delivery.NewPool(s, actors, cfg)
	pool.Run(ctx)

	srv := server.New(cfg, s, actors, addr, filter, engine)
	srv.SetLogBroadcaster(logBroadcaster)
	srv.Start(ctx) // blocks until ctx is cancelled

	slog.Info("onepagepub stopped")
}
