package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"technewsag/internal/models"
)

// Collector triggers a collection run. Implemented by internal/collector.
type Collector interface {
	Collect(ctx context.Context, maxSources int) ([]models.Article, models.CollectStats, error)
}

// Refresher periodically re-runs collection with a bounded source cap, but
// only while the store is stale. A manual collect that already refreshed the
// cache suppresses the next scheduled run.
type Refresher struct {
	collector  Collector
	store      *Store
	interval   time.Duration
	maxSources int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	isRunning  bool
	lastRun    time.Time
}

func NewRefresher(collector Collector, store *Store, interval time.Duration, maxSources int) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		collector:  collector,
		store:      store,
		interval:   interval,
		maxSources: maxSources,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (r *Refresher) Start() {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = true
	r.mu.Unlock()

	log.Printf("Starting background refresher with interval: %v", r.interval)

	r.wg.Add(1)
	go r.loop()
}

func (r *Refresher) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	r.mu.Unlock()

	log.Println("Stopping background refresher...")
	r.cancel()
	r.wg.Wait()
	log.Println("Background refresher stopped")
}

func (r *Refresher) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.refreshIfStale()
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Refresher) refreshIfStale() {
	if r.store.IsValid() {
		log.Println("Cache still fresh, skipping scheduled refresh")
		return
	}

	log.Printf("Cache stale, refreshing with up to %d sources", r.maxSources)
	_, stats, err := r.collector.Collect(r.ctx, r.maxSources)
	if err != nil {
		log.Printf("Scheduled refresh failed: %v", err)
	} else {
		log.Printf("Scheduled refresh done: %d unique articles (%d sources ok, %d failed)",
			stats.Unique, stats.SourcesOK, stats.SourcesFailed)
	}

	r.mu.Lock()
	r.lastRun = time.Now()
	r.mu.Unlock()
}

func (r *Refresher) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isRunning
}

func (r *Refresher) LastRun() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastRun
}
