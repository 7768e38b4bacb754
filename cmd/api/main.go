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

	"redline/api/internal/archive"
	"redline/api/internal/config"
	"redline/api/internal/docs"
	"redline/api/internal/export"
	"redline/api/internal/journal"
	"redline/api/internal/review"
	"redline/api/internal/search"
	"redline/api/internal/snapshot"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var provider docs.Provider
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := docs.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()
		provider = docs.NewPostgresProvider(db)
		log.Printf("Serving documents from PostgreSQL")
	} else {
		provider = docs.NewSeedProvider()
		log.Printf("Serving seeded documents")
	}

	if err := os.MkdirAll(cfg.JournalDir, 0o755); err != nil {
		log.Fatalf("failed to create journal dir: %v", err)
	}
	journalService := journal.New(cfg.JournalDir)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewMemory())

	var snapshotStore *snapshot.RedisStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		store, err := snapshot.NewRedisStore(cfg.RedisURL, cfg.SnapshotTTL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer store.Close()
		snapshotStore = store
		log.Printf("Snapshots stored in Redis")
	}

	var archiveService *archive.Service
	if strings.TrimSpace(cfg.ArchiveEndpoint) != "" {
		svc, err := archive.New(cfg.ArchiveEndpoint, cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, cfg.ArchiveBucket, cfg.ArchiveUseSSL)
		if err != nil {
			log.Fatalf("object storage connection failed: %v", err)
		}
		if err := svc.EnsureBucket(ctx); err != nil {
			log.Printf("WARNING: archive bucket check failed: %v", err)
		}
		archiveService = svc
		log.Printf("Exports archived to %s", cfg.ArchiveBucket)
	}

	service := review.NewService(cfg, provider, searchService, journalService, snapshotStore, archiveService, export.NewService())

	httpServer := review.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Redline API listening on %s", cfg.Addr)
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
