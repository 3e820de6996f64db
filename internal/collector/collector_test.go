package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"technewsag/internal/cache"
	"technewsag/internal/config"
	"technewsag/internal/fetcher"
	"technewsag/internal/models"
)

// stubFetcher serves canned payloads keyed by feed URL or page URL.
type stubFetcher struct {
	mu        sync.Mutex
	feeds     map[string][]byte
	feedErrs  map[string]error
	pages     map[string][]byte
	pageErrs  map[string]error
	feedCalls []string
}

func (s *stubFetcher) FetchFeed(ctx context.Context, src config.FeedSource) ([]byte, error) {
	s.mu.Lock()
	s.feedCalls = append(s.feedCalls, src.FeedURL)
	s.mu.Unlock()

	if err, ok := s.feedErrs[src.FeedURL]; ok {
		return nil, err
	}
	return s.feeds[src.FeedURL], nil
}

func (s *stubFetcher) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	if err, ok := s.pageErrs[pageURL]; ok {
		return nil, err
	}
	return s.pages[pageURL], nil
}

func (s *stubFetcher) feedCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feedCalls)
}

func envelope(items ...string) []byte {
	return []byte(`{"status":"ok","items":[` + strings.Join(items, ",") + `]}`)
}

func item(title, link string) string {
	pub := time.Now().UTC().Format(time.RFC3339)
	return fmt.Sprintf(`{"title":%q,"link":%q,"pubDate":%q,"description":"본문 요약"}`, title, link, pub)
}

func testConfig(feeds ...config.FeedSource) *config.Config {
	return &config.Config{
		Feeds:       feeds,
		MaxSources:  len(feeds),
		MinArticles: 1,
		ScrapeDelay: time.Millisecond,
	}
}

func TestCollect_MergesInRegistryOrder(t *testing.T) {
	f := &stubFetcher{feeds: map[string][]byte{
		"https://a/rss": envelope(item("에이 기사", "https://a/1")),
		"https://b/rss": envelope(item("비 기사", "https://b/1")),
	}}
	cfg := testConfig(
		config.FeedSource{FeedURL: "https://a/rss", Source: "A", Lang: "ko"},
		config.FeedSource{FeedURL: "https://b/rss", Source: "B", Lang: "ko"},
	)
	store := cache.NewStore(30*time.Minute, nil, nil)

	articles, stats, err := New(f, store, cfg).Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.SourcesOK != 2 || stats.SourcesFailed != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}
	if articles[0].Source != "A" || articles[1].Source != "B" {
		t.Errorf("Expected registry order A then B, got %s then %s", articles[0].Source, articles[1].Source)
	}
	if !store.IsValid() {
		t.Error("Expected cache to be valid after collection")
	}
}

func TestCollect_DedupByLink(t *testing.T) {
	f := &stubFetcher{feeds: map[string][]byte{
		"https://a/rss": envelope(item("원본 기사", "https://shared/1")),
		"https://b/rss": envelope(item("재배포 기사", "https://shared/1")),
	}}
	cfg := testConfig(
		config.FeedSource{FeedURL: "https://a/rss", Source: "A", Lang: "ko"},
		config.FeedSource{FeedURL: "https://b/rss", Source: "B", Lang: "ko"},
	)
	store := cache.NewStore(30*time.Minute, nil, nil)

	articles, _, err := New(f, store, cfg).Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected duplicate link collapsed to 1 article, got %d", len(articles))
	}
	if articles[0].Source != "A" {
		t.Errorf("Expected first registry occurrence to win, got %s", articles[0].Source)
	}
}

func TestCollect_DedupByTitleAcrossSources(t *testing.T) {
	f := &stubFetcher{feeds: map[string][]byte{
		"https://a/rss": envelope(item("동일한 제목", "https://a/1")),
		"https://b/rss": envelope(item("동일한 제목", "https://b/1")),
	}}
	cfg := testConfig(
		config.FeedSource{FeedURL: "https://a/rss", Source: "A", Lang: "ko"},
		config.FeedSource{FeedURL: "https://b/rss", Source: "B", Lang: "ko"},
	)
	store := cache.NewStore(30*time.Minute, nil, nil)

	articles, _, err := New(f, store, cfg).Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("Expected equal titles collapsed to 1 article, got %d", len(articles))
	}
}

func TestCollect_FailureIsolation(t *testing.T) {
	f := &stubFetcher{
		feeds: map[string][]byte{
			"https://ok/rss": envelope(item("정상 기사", "https://ok/1")),
		},
		feedErrs: map[string]error{
			"https://blocked/rss": &fetcher.FetchError{Kind: fetcher.KindBlocked, Status: 403, URL: "https://blocked/rss"},
			"https://down/rss":    &fetcher.FetchError{Kind: fetcher.KindTimeout, URL: "https://down/rss", Err: context.DeadlineExceeded},
		},
	}
	cfg := testConfig(
		config.FeedSource{FeedURL: "https://ok/rss", Source: "OK", Lang: "ko"},
		config.FeedSource{FeedURL: "https://blocked/rss", Source: "Blocked", Lang: "ko"},
		config.FeedSource{FeedURL: "https://down/rss", Source: "Down", Lang: "ko"},
	)
	store := cache.NewStore(30*time.Minute, nil, nil)

	articles, stats, err := New(f, store, cfg).Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("Expected the healthy source to survive, got %d articles", len(articles))
	}
	if stats.SourcesOK != 1 || stats.SourcesFailed != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.Failures["Blocked"] != "blocked" {
		t.Errorf("Expected blocked classification, got %q", stats.Failures["Blocked"])
	}
	if stats.Failures["Down"] != "timeout" {
		t.Errorf("Expected timeout classification, got %q", stats.Failures["Down"])
	}
}

func TestCollect_ParseFailureClassified(t *testing.T) {
	f := &stubFetcher{feeds: map[string][]byte{
		"https://ok/rss":  envelope(item("정상 기사", "https://ok/1")),
		"https://bad/rss": []byte(`{"status":"error","message":"invalid feed"}`),
	}}
	cfg := testConfig(
		config.FeedSource{FeedURL: "https://ok/rss", Source: "OK", Lang: "ko"},
		config.FeedSource{FeedURL: "https://bad/rss", Source: "Bad", Lang: "ko"},
	)
	store := cache.NewStore(30*time.Minute, nil, nil)

	_, stats, err := New(f, store, cfg).Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.Failures["Bad"] != "parse" {
		t.Errorf("Expected parse classification, got %q", stats.Failures["Bad"])
	}
}

func TestCollect_SamplePadding(t *testing.T) {
	f := &stubFetcher{feeds: map[string][]byte{
		"https://a/rss": envelope(item("단독 기사", "https://a/1")),
	}}
	cfg := testConfig(config.FeedSource{FeedURL: "https://a/rss", Source: "A", Lang: "ko"})
	cfg.MinArticles = 10
	store := cache.NewStore(30*time.Minute, nil, nil)

	articles, stats, err := New(f, store, cfg).Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !stats.Sampled {
		t.Error("Expected sampled flag to be set")
	}
	if len(articles) < 10 {
		t.Errorf("Expected sample padding to reach at least 10, got %d", len(articles))
	}

	sampled := 0
	for _, a := range articles {
		if a.Source == "샘플 뉴스" {
			sampled++
			if !a.SyntheticLink() {
				t.Errorf("Sample article carries a non-synthetic link: %s", a.Link)
			}
		}
	}
	if sampled != 10 {
		t.Errorf("Expected 10 sample articles, got %d", sampled)
	}
}

func TestCollect_AllFailedKeepsPreviousGeneration(t *testing.T) {
	seed := &stubFetcher{feeds: map[string][]byte{
		"https://a/rss": envelope(item("이전 세대 기사", "https://a/1")),
	}}
	cfg := testConfig(config.FeedSource{FeedURL: "https://a/rss", Source: "A", Lang: "ko"})
	cfg.MinArticles = 0
	store := cache.NewStore(30*time.Minute, nil, nil)

	if _, _, err := New(seed, store, cfg).Collect(context.Background(), 0); err != nil {
		t.Fatalf("Seed collection failed: %v", err)
	}
	before, _ := store.Snapshot()

	failing := &stubFetcher{feedErrs: map[string]error{
		"https://a/rss": &fetcher.FetchError{Kind: fetcher.KindNetwork, URL: "https://a/rss", Err: errors.New("refused")},
	}}
	_, stats, err := New(failing, store, cfg).Collect(context.Background(), 0)
	if !errors.Is(err, ErrNoArticles) {
		t.Fatalf("Expected ErrNoArticles, got %v", err)
	}
	if stats.SourcesFailed != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	after, _ := store.Snapshot()
	if len(after) != len(before) {
		t.Errorf("Failed run must not replace the previous generation: %d -> %d", len(before), len(after))
	}
}

func TestCollect_CancelledContextKeepsPreviousGeneration(t *testing.T) {
	f := &stubFetcher{feeds: map[string][]byte{
		"https://a/rss": envelope(item("정상 기사", "https://a/1")),
	}}
	cfg := testConfig(config.FeedSource{FeedURL: "https://a/rss", Source: "A", Lang: "ko"})
	cfg.MinArticles = 10
	store := cache.NewStore(30*time.Minute, nil, nil)
	col := New(f, store, cfg)

	if _, _, err := col.Collect(context.Background(), 0); err != nil {
		t.Fatalf("Seed collection failed: %v", err)
	}
	before, _ := store.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, stats, err := col.Collect(ctx, 0)
	if err == nil {
		t.Fatal("Expected error from cancelled run")
	}
	if stats.Sampled {
		t.Error("Cancelled run must not fall back to the sample set")
	}

	after, _ := store.Snapshot()
	if len(after) != len(before) {
		t.Errorf("Cancelled run replaced the generation: %d -> %d", len(before), len(after))
	}
}

func TestCollect_MaxSourcesCap(t *testing.T) {
	f := &stubFetcher{feeds: map[string][]byte{
		"https://a/rss": envelope(item("에이 기사", "https://a/1")),
		"https://b/rss": envelope(item("비 기사", "https://b/1")),
	}}
	cfg := testConfig(
		config.FeedSource{FeedURL: "https://a/rss", Source: "A", Lang: "ko"},
		config.FeedSource{FeedURL: "https://b/rss", Source: "B", Lang: "ko"},
	)
	store := cache.NewStore(30*time.Minute, nil, nil)

	articles, _, err := New(f, store, cfg).Collect(context.Background(), 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.feedCallCount() != 1 {
		t.Errorf("Expected only 1 source fetched, got %d", f.feedCallCount())
	}
	if len(articles) != 1 || articles[0].Source != "A" {
		t.Errorf("Expected only the first registry source, got %+v", articles)
	}
}

func TestCollect_RecencyFilter(t *testing.T) {
	old := fmt.Sprintf(`{"title":"오래된 기사","link":"https://a/old","pubDate":%q}`,
		time.Now().UTC().Add(-30*24*time.Hour).Format(time.RFC3339))
	f := &stubFetcher{feeds: map[string][]byte{
		"https://a/rss": envelope(item("최신 기사", "https://a/new"), old),
	}}
	cfg := testConfig(config.FeedSource{FeedURL: "https://a/rss", Source: "A", Lang: "ko"})
	cfg.MaxItemAge = 7 * 24 * time.Hour
	store := cache.NewStore(30*time.Minute, nil, nil)

	articles, _, err := New(f, store, cfg).Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected old item filtered out, got %d articles", len(articles))
	}
	if articles[0].Title != "최신 기사" {
		t.Errorf("Wrong article survived: %s", articles[0].Title)
	}
}

func TestCollect_ScrapePass(t *testing.T) {
	f := &stubFetcher{
		feeds: map[string][]byte{
			"https://a/rss": envelope(item("피드 기사", "https://a/1")),
		},
		pages: map[string][]byte{
			"https://scrape.example.com/it?page=1": []byte(`<html><body><h2><a href="/news/777">스크랩으로 수집한 반도체 기사</a></h2></body></html>`),
		},
		pageErrs: map[string]error{
			"https://scrape.example.com/it?page=2": &fetcher.FetchError{Kind: fetcher.KindBlocked, Status: 429, URL: "page2"},
		},
	}
	cfg := testConfig(config.FeedSource{FeedURL: "https://a/rss", Source: "A", Lang: "ko"})
	cfg.EnableScraping = true
	cfg.ScrapeTargets = []config.ScrapeTarget{
		{Name: "scrape", URLTemplate: "https://scrape.example.com/it?page=%d", Source: "스크랩", Lang: "ko", Pages: 2},
	}
	store := cache.NewStore(30*time.Minute, nil, nil)

	articles, stats, err := New(f, store, cfg).Collect(context.Background(), 0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("Expected feed article plus scraped article, got %d", len(articles))
	}

	var scraped bool
	for _, a := range articles {
		if a.Source == "스크랩" {
			scraped = true
			if a.Link != "https://scrape.example.com/news/777" {
				t.Errorf("Scraped link not resolved against the page URL: %s", a.Link)
			}
		}
	}
	if !scraped {
		t.Error("Expected a scraped article in the result")
	}
	if stats.Failures["scrape#2"] != "blocked" {
		t.Errorf("Expected page failure recorded, got %+v", stats.Failures)
	}
}

func TestDedupByLink_SyntheticExempt(t *testing.T) {
	in := []models.Article{
		{ID: 1, Title: "첫 번째", Link: "#A-0"},
		{ID: 2, Title: "두 번째", Link: "#B-0"},
		{ID: 3, Title: "세 번째", Link: "https://x/1"},
		{ID: 4, Title: "네 번째", Link: "https://x/1"},
	}

	out := dedupByLink(in)
	if len(out) != 3 {
		t.Errorf("Expected synthetic links exempt from dedup, got %d articles", len(out))
	}
}

func TestDedupByLinkOrTitle(t *testing.T) {
	in := []models.Article{
		{ID: 1, Title: "같은 제목", Link: "https://x/1"},
		{ID: 2, Title: "같은 제목", Link: "https://x/2"},
		{ID: 3, Title: "다른 제목", Link: "https://x/1"},
		{ID: 4, Title: "고유 제목", Link: "https://x/3"},
	}

	out := dedupByLinkOrTitle(in)
	if len(out) != 2 {
		t.Fatalf("Expected 2 articles after link-or-title dedup, got %d", len(out))
	}
	if out[0].ID != 1 || out[1].ID != 4 {
		t.Errorf("Wrong survivors: %+v", out)
	}
}
