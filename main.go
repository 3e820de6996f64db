package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"technewsag/internal/api"
	"technewsag/internal/cache"
	"technewsag/internal/collector"
	"technewsag/internal/config"
	"technewsag/internal/fetcher"
	"technewsag/internal/query"
	"technewsag/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize persistent snapshot store
	kv, err := storage.NewStorage(cfg.DataDir)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}
	defer kv.Close()

	// Memoization layer for derived stats
	memo := cache.NewManager(cfg.CacheTTL)

	// Cache store adopts a persisted snapshot when it is still fresh
	store := cache.NewStore(cfg.CacheTTL, kv, memo)

	// Collection pipeline
	client := fetcher.New(cfg)
	col := collector.New(client, store, cfg)

	// Query engine
	engine := query.NewEngine(store, memo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial collection when the adopted snapshot is missing or stale
	if !store.IsValid() {
		log.Printf("Cache empty or stale, running initial collection...")
		if _, stats, err := col.Collect(ctx, cfg.MaxSources); err != nil {
			log.Printf("Warning: initial collection failed: %v", err)
		} else {
			log.Printf("Initial collection done: %d articles (%d sources ok, %d failed)",
				stats.Unique, stats.SourcesOK, stats.SourcesFailed)
		}
	}

	// Background refresher re-collects with a bounded source cap when stale
	refresher := cache.NewRefresher(col, store, cfg.CacheTTL, cfg.RefreshMaxSources)
	refresher.Start()

	server := api.NewServer(col, engine, store, refresher, cfg)

	log.Printf("Starting tech-news aggregator on port %d", cfg.Port)
	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("Cache TTL: %v", cfg.CacheTTL)
	log.Printf("Registered feeds: %d, scrape targets: %d", len(cfg.Feeds), len(cfg.ScrapeTargets))

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, stopping services...")
		refresher.Stop()
		cancel()
	}()

	if err := server.StartWithContext(ctx); err != nil && err != context.Canceled {
		log.Fatal("Failed to start server:", err)
	}
}
