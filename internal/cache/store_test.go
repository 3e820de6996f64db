package cache

import (
	"encoding/json"
	"testing"
	"time"

	"technewsag/internal/models"
)

// memKV is an in-memory stand-in for the sqlite snapshot mirror.
type memKV struct {
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(key, value string) error {
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *memKV) Close() error { return nil }

func testArticles() []models.Article {
	return []models.Article{
		{ID: 1, Title: "first", Link: "https://example.com/1", Keywords: []string{"AI"}},
		{ID: 2, Title: "second", Link: "https://example.com/2", Keywords: []string{"반도체"}},
	}
}

func TestReplaceAndSnapshot(t *testing.T) {
	s := NewStore(30*time.Minute, nil, nil)

	articles := testArticles()
	s.Replace(articles)

	got, lastUpdate := s.Snapshot()
	if len(got) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(got))
	}
	if lastUpdate.IsZero() {
		t.Error("Expected last update to be set")
	}
	if !s.IsValid() {
		t.Error("Expected cache to be valid after replace")
	}
}

func TestIsValid_TTLBoundary(t *testing.T) {
	s := NewStore(30*time.Minute, nil, nil)
	s.Replace(testArticles())

	base := time.Now()
	s.mu.Lock()
	s.lastUpdate = base
	s.mu.Unlock()

	s.now = func() time.Time { return base.Add(29 * time.Minute) }
	if !s.IsValid() {
		t.Error("Expected cache valid at 29 minutes")
	}

	s.now = func() time.Time { return base.Add(31 * time.Minute) }
	if s.IsValid() {
		t.Error("Expected cache stale at 31 minutes")
	}
}

func TestIsValid_EmptyCache(t *testing.T) {
	s := NewStore(30*time.Minute, nil, nil)
	if s.IsValid() {
		t.Error("Empty cache must not be valid")
	}

	// An empty generation is also invalid regardless of freshness.
	s.Replace([]models.Article{})
	if s.IsValid() {
		t.Error("Empty generation must not be valid")
	}
}

func TestReplace_Persists(t *testing.T) {
	kv := newMemKV()
	s := NewStore(30*time.Minute, kv, nil)
	s.Replace(testArticles())

	payload, ok, _ := kv.Get("articles")
	if !ok {
		t.Fatal("Expected persisted articles")
	}
	var persisted []models.Article
	if err := json.Unmarshal([]byte(payload), &persisted); err != nil {
		t.Fatalf("Persisted payload not JSON: %v", err)
	}
	if len(persisted) != 2 {
		t.Errorf("Expected 2 persisted articles, got %d", len(persisted))
	}

	if _, ok, _ := kv.Get("last_update"); !ok {
		t.Error("Expected persisted timestamp")
	}
}

func TestAdoptSnapshot_Fresh(t *testing.T) {
	kv := newMemKV()
	payload, _ := json.Marshal(testArticles())
	kv.Set("articles", string(payload))
	kv.Set("last_update", time.Now().Add(-5*time.Minute).Format(time.RFC3339))

	s := NewStore(30*time.Minute, kv, nil)

	got, _ := s.Snapshot()
	if len(got) != 2 {
		t.Errorf("Expected adopted snapshot with 2 articles, got %d", len(got))
	}
	if !s.IsValid() {
		t.Error("Expected adopted snapshot to be valid")
	}
}

func TestAdoptSnapshot_Stale(t *testing.T) {
	kv := newMemKV()
	payload, _ := json.Marshal(testArticles())
	kv.Set("articles", string(payload))
	kv.Set("last_update", time.Now().Add(-2*time.Hour).Format(time.RFC3339))

	s := NewStore(30*time.Minute, kv, nil)

	got, _ := s.Snapshot()
	if len(got) != 0 {
		t.Errorf("Expected stale snapshot to be discarded, got %d articles", len(got))
	}
}

func TestAdoptSnapshot_Corrupt(t *testing.T) {
	kv := newMemKV()
	kv.Set("articles", "{not json")
	kv.Set("last_update", time.Now().Format(time.RFC3339))

	s := NewStore(30*time.Minute, kv, nil)

	got, _ := s.Snapshot()
	if len(got) != 0 {
		t.Errorf("Expected corrupt snapshot to be discarded, got %d articles", len(got))
	}

	kv2 := newMemKV()
	kv2.Set("articles", "[]")
	kv2.Set("last_update", "yesterday-ish")
	s2 := NewStore(30*time.Minute, kv2, nil)
	if s2.IsValid() {
		t.Error("Bad timestamp must be treated as a cache miss")
	}
}

func TestToggleFavorite(t *testing.T) {
	s := NewStore(30*time.Minute, nil, nil)
	s.Replace(testArticles())

	if !s.ToggleFavorite(1) {
		t.Fatal("Expected toggle of known id to succeed")
	}
	got, _ := s.Snapshot()
	if !got[0].IsFavorite {
		t.Error("Expected article 1 to be favorite")
	}
	if got[1].IsFavorite {
		t.Error("Article 2 must be untouched")
	}

	// Toggle is an involution.
	s.ToggleFavorite(1)
	got, _ = s.Snapshot()
	if got[0].IsFavorite {
		t.Error("Expected second toggle to restore the flag")
	}

	if s.ToggleFavorite(999) {
		t.Error("Unknown id must be a no-op")
	}
}

func TestReplace_IncrementsGeneration(t *testing.T) {
	s := NewStore(30*time.Minute, nil, nil)

	g0 := s.Generation()
	s.Replace(testArticles())
	if s.Generation() != g0+1 {
		t.Errorf("Expected generation %d after replace, got %d", g0+1, s.Generation())
	}
	s.Replace(testArticles())
	if s.Generation() != g0+2 {
		t.Errorf("Expected generation %d after second replace, got %d", g0+2, s.Generation())
	}
}

func TestReplace_FlushesMemo(t *testing.T) {
	memo := NewManager(30 * time.Minute)
	memo.Set("stats:keywords", "cached", time.Minute)

	s := NewStore(30*time.Minute, nil, memo)
	s.Replace(testArticles())

	if _, ok := memo.Get("stats:keywords"); ok {
		t.Error("Expected memoized results to be flushed on replace")
	}
}

func TestStatus(t *testing.T) {
	s := NewStore(30*time.Minute, nil, nil)
	st := s.Status()
	if st.Valid || st.Articles != 0 {
		t.Errorf("Unexpected empty status: %+v", st)
	}
	if st.TTL != "30m0s" {
		t.Errorf("Unexpected TTL string: %s", st.TTL)
	}

	s.Replace(testArticles())
	st = s.Status()
	if !st.Valid || st.Articles != 2 {
		t.Errorf("Unexpected populated status: %+v", st)
	}
}
