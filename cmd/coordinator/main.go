package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"

	"github.com/ks-2023-judge/judge/core"
)

func main() {
	cfg := core.Load()

	logFile, err := core.SetupLogging(cfg, "")
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer db.Close()

	store := core.NewPgStore(db)
	coordinator := core.NewCoordinator(store)

	instanceID := core.NewCoordinatorInstanceID()
	var snapshotReader *core.SnapshotReader
	if cfg.RedisURL != "" {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Printf("redis unavailable, status-snapshot mirror disabled: %v", err)
		} else {
			defer redisClient.Close()
			publisher := core.NewSnapshotPublisher(instanceID, redisClient)
			coordinator.OnSnapshot(publisher.Publish)
			go publisher.Run(ctx)
			snapshotReader = core.NewSnapshotReader(redisClient)
		}
	}

	passwordHash, err := core.EnsureOperatorCredential(cfg)
	if err != nil {
		log.Fatalf("bootstrap operator credential: %v", err)
	}
	auth := core.NewOperatorAuth(cfg.OperatorUsername, passwordHash)

	cookieStore := sessions.NewCookieStore([]byte(cfg.SessionKey))
	router := core.NewRouter(cfg, cookieStore, auth, coordinator, snapshotReader)

	statusServer := &http.Server{
		Addr:              cfg.StatusAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("coordinator: status dashboard listening on %s", cfg.StatusAddr)
		if err := statusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("status server: %v", err)
		}
	}()

	go func() {
		if err := coordinator.Listen(ctx, cfg.ListenAddr); err != nil {
			log.Printf("coordinator: listen on %s: %v", cfg.ListenAddr, err)
			stop()
		}
	}()

	coordinator.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := statusServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("status server shutdown: %v", err)
	}
	log.Printf("coordinator: shut down")
}
