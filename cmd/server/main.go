package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/powergrid/internal/api"
	"github.com/gyaneshwarpardhi/powergrid/internal/config"
	"github.com/gyaneshwarpardhi/powergrid/internal/engine"
	"github.com/gyaneshwarpardhi/powergrid/internal/sink"
	"github.com/gyaneshwarpardhi/powergrid/internal/sink/history"
	"github.com/gyaneshwarpardhi/powergrid/internal/sink/pubsub"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/circuit.yaml", "Path to circuit config (.yaml or .toml)")
	pubAddr := flag.String("pub-addr", "", "Publish power changes on this nanomsg PUB address, e.g. tcp://*:9400")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Sinks ─────────────────────────────────────────────────────────────────
	hist := history.New(cfg.Engine.HistorySize)
	reg := sink.NewRegistry()
	reg.Register(sink.NewLog(logger))
	reg.Register(hist)
	if *pubAddr != "" {
		pub, err := pubsub.Listen(*pubAddr)
		if err != nil {
			slog.Error("failed to open publisher", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		reg.Register(pub)
		slog.Info("publishing power changes", "addr", pub.Addr())
		if !bindsSink(cfg, pub.Type()) {
			slog.Warn("no sink binding routes changes to the publisher", "type", pub.Type())
		}
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := engine.New(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to build circuit", "err", err)
		os.Exit(1)
	}
	if err := eng.Start(ctx); err != nil {
		slog.Warn("circuit start reported errors", "err", err)
	}
	slog.Info("circuit started", "nodes", len(cfg.Nodes), "edges", len(cfg.Edges), "sinks", reg.Types())

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.CircuitConfig) {
		mode, err := eng.Reconcile(ctx, newCfg)
		if !engine.Applied(mode) {
			slog.Warn("hot-reload skipped", "mode", mode, "err", err)
			return
		}
		if err != nil {
			slog.Warn("circuit hot-reloaded with start errors", "mode", mode, "err", err)
		}
		slog.Info("circuit hot-reloaded", "mode", mode, "nodes", len(newCfg.Nodes), "edges", len(newCfg.Edges))
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(eng, loader, hist)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	eng.Shutdown() // finish queued commands and deliveries
	cancel()
	slog.Info("goodbye")
}

func bindsSink(cfg *config.CircuitConfig, typ string) bool {
	for _, sb := range cfg.Sinks {
		if sb.Type == typ {
			return true
		}
	}
	return false
}
