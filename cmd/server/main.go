package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docoutline/internal/api"
	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/pathstore"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/dgallion1/docoutline/internal/store"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		sinks    []pipeline.Sink
		index    pipeline.HashIndex
		docs     api.DocumentStore
		removers []api.Remover
		closers  []func() error
	)

	// Local catalogue.
	if cfg.DBPath != "" {
		st, err := store.Open(ctx, cfg.DBPath, log)
		if err != nil {
			log.Error("open store", "path", cfg.DBPath, "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, st)
		index = st
		docs = st
		closers = append(closers, st.Close)
	}

	// Optional remote mirror.
	if cfg.PathstoreURL != "" {
		ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		mirror := pathstore.NewMirror(ps, "")
		sinks = append(sinks, mirror)
		removers = append(removers, mirror)
		closers = append(closers, func() error { ps.Close(); return nil })
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, sinks, index, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, docs, removers, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("close failed", "error", err)
			}
		}
	}()

	log.Info("starting docoutline", "port", cfg.Port, "sinks", len(sinks), "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
