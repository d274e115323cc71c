package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shoplink/api/internal/app"
	"shoplink/api/internal/config"
	"shoplink/api/internal/realtime"
	"shoplink/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	hub := realtime.NewHub()

	var broadcaster app.Broadcaster = hub
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for cross-instance event fan-out")
		redisBroadcaster, err := realtime.NewRedisBroadcaster(cfg.RedisURL, hub)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisBroadcaster.Close()
		broadcaster = redisBroadcaster
	}

	service := app.New(cfg, dataStore, broadcaster)
	httpServer := app.NewHTTPServer(service, hub, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: /realtime event streams are long-lived.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Shoplink API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
