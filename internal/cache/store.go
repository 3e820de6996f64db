package cache

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"technewsag/internal/models"
	"technewsag/internal/storage"
)

const (
	articlesKey   = "articles"
	lastUpdateKey = "last_update"
)

// Store owns the current article generation. It is replaced wholesale by a
// successful collection run and read as a snapshot by every query. Staleness
// is evaluated lazily against the TTL; no transition logic runs on its own.
type Store struct {
	mu         sync.RWMutex
	articles   []models.Article
	lastUpdate time.Time
	generation uint64
	ttl        time.Duration
	kv         storage.KV
	memo       *Manager
	now        func() time.Time
}

func NewStore(ttl time.Duration, kv storage.KV, memo *Manager) *Store {
	s := &Store{
		ttl:  ttl,
		kv:   kv,
		memo: memo,
		now:  time.Now,
	}
	s.adoptSnapshot()
	return s
}

// adoptSnapshot restores a prior generation from the key-value mirror, but
// only when it is still fresh. Any read or decode failure is treated as a
// cache miss and the store starts empty.
func (s *Store) adoptSnapshot() {
	if s.kv == nil {
		return
	}

	raw, ok, err := s.kv.Get(lastUpdateKey)
	if err != nil || !ok {
		return
	}
	lastUpdate, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		log.Printf("Discarding persisted snapshot: bad timestamp %q", raw)
		return
	}
	if s.now().Sub(lastUpdate) >= s.ttl {
		log.Printf("Discarding persisted snapshot: stale (last update %s)", lastUpdate.Format(time.RFC3339))
		return
	}

	payload, ok, err := s.kv.Get(articlesKey)
	if err != nil || !ok {
		return
	}
	var articles []models.Article
	if err := json.Unmarshal([]byte(payload), &articles); err != nil {
		log.Printf("Discarding persisted snapshot: %v", err)
		return
	}

	s.articles = articles
	s.lastUpdate = lastUpdate
	log.Printf("Adopted persisted snapshot: %d articles from %s", len(articles), lastUpdate.Format(time.RFC3339))
}

// Replace swaps in a new generation atomically, refreshes the timestamp and
// bumps the generation counter. Concurrent readers never observe a
// half-updated set. Memoized derived results are flushed under the same lock;
// computations that raced the swap write under the old generation's keys and
// are never read back.
func (s *Store) Replace(articles []models.Article) {
	s.mu.Lock()
	s.articles = articles
	s.lastUpdate = s.now()
	s.generation++
	s.persistLocked()
	if s.memo != nil {
		s.memo.Flush()
	}
	s.mu.Unlock()
}

// Generation identifies the current article set; it increments on every
// Replace. Derived-result caches key their entries by it.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// persistLocked mirrors the generation to the key-value store. Persistence
// failures are logged and recovered; the in-memory generation stays valid.
func (s *Store) persistLocked() {
	if s.kv == nil {
		return
	}
	payload, err := json.Marshal(s.articles)
	if err != nil {
		log.Printf("Warning: failed to serialize snapshot: %v", err)
		return
	}
	if err := s.kv.Set(articlesKey, string(payload)); err != nil {
		log.Printf("Warning: failed to persist snapshot: %v", err)
		return
	}
	if err := s.kv.Set(lastUpdateKey, s.lastUpdate.Format(time.RFC3339)); err != nil {
		log.Printf("Warning: failed to persist snapshot timestamp: %v", err)
	}
}

// Snapshot returns the current generation and its timestamp. Callers must
// not mutate the returned slice; the favorite toggle is the only sanctioned
// mutation path.
func (s *Store) Snapshot() ([]models.Article, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.articles, s.lastUpdate
}

// IsValid reports whether the cache is populated and not yet stale.
func (s *Store) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles) > 0 && s.now().Sub(s.lastUpdate) < s.ttl
}

func (s *Store) Status() models.CacheStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CacheStatus{
		Valid:      len(s.articles) > 0 && s.now().Sub(s.lastUpdate) < s.ttl,
		Articles:   len(s.articles),
		LastUpdate: s.lastUpdate,
		TTL:        s.ttl.String(),
	}
}

// ToggleFavorite flips the favorite flag on the matching article in place.
// Unknown ids are a no-op.
func (s *Store) ToggleFavorite(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.articles {
		if s.articles[i].ID == id {
			s.articles[i].IsFavorite = !s.articles[i].IsFavorite
			s.persistLocked()
			return true
		}
	}
	return false
}
