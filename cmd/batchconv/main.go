package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"batchconv/internal/api"
	"batchconv/internal/codec"
	"batchconv/internal/config"
	"batchconv/internal/export"
	"batchconv/internal/queue"
	"batchconv/internal/store"
	"batchconv/internal/watcher"
	"batchconv/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("starting batchconv on port %d, db=%s, output=%s", cfg.HTTPPort, cfg.DBPath, cfg.OutputDir)

	history, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open history db: %v", err)
	}
	defer history.Close()

	q := queue.New()
	runner := worker.New(export.New(codec.Default()), history)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional hot folder feeding the queue.
	if cfg.IntakeDir != "" {
		w, err := watcher.New(cfg.IntakeDir, cfg.StabilityDelay, q)
		if err != nil {
			log.Fatalf("failed to create intake watcher: %v", err)
		}
		defer w.Close()
		go func() {
			log.Printf("watching intake dir %s", cfg.IntakeDir)
			if err := w.Start(ctx); err != nil {
				log.Printf("intake watcher error: %v", err)
			}
		}()
	}

	server := api.NewServer(cfg, history, q, runner)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr(), Handler: server.Router}
	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddr())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	log.Printf("received signal %s, shutting down...", s)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	log.Printf("shutdown complete")
}
