package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"technewsag/internal/cache"
	"technewsag/internal/config"
	"technewsag/internal/fetcher"
	"technewsag/internal/keywords"
	"technewsag/internal/models"
	"technewsag/internal/normalizer"
	"technewsag/internal/parser"

	"golang.org/x/time/rate"
)

// ErrNoArticles is returned only when every source failed and even the
// fallback sample set produced nothing. With samples compiled in this should
// not happen in practice.
var ErrNoArticles = errors.New("collection produced no articles")

// Fetcher is the outbound request surface the collector depends on.
// Satisfied by fetcher.Client; tests substitute a stub.
type Fetcher interface {
	FetchFeed(ctx context.Context, src config.FeedSource) ([]byte, error)
	FetchPage(ctx context.Context, pageURL string) ([]byte, error)
}

// Collector runs the full pipeline: fan out fetch+parse+extract+normalize
// across the registry, merge, dedup, supplement with a scraping pass and
// sample fallback, then swap the result into the cache store.
type Collector struct {
	fetcher    Fetcher
	parser     *parser.Parser
	normalizer *normalizer.Normalizer
	store      *cache.Store
	cfg        *config.Config
	limiter    *rate.Limiter
}

func New(f Fetcher, store *cache.Store, cfg *config.Config) *Collector {
	delay := cfg.ScrapeDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Collector{
		fetcher:    f,
		parser:     parser.New(),
		normalizer: normalizer.New(),
		store:      store,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
	}
}

type sourceResult struct {
	articles []models.Article
	err      error
}

// Collect replaces the cache with a fresh generation. Per-source failures
// are recorded in the stats but never abort the run; only a run that yields
// literally nothing returns an error, and in that case the previous
// generation is left intact.
func (c *Collector) Collect(ctx context.Context, maxSources int) ([]models.Article, models.CollectStats, error) {
	start := time.Now()
	stats := models.CollectStats{Failures: make(map[string]string)}

	if maxSources <= 0 || maxSources > len(c.cfg.Feeds) {
		maxSources = c.cfg.MaxSources
	}
	if maxSources > len(c.cfg.Feeds) {
		maxSources = len(c.cfg.Feeds)
	}
	sources := c.cfg.Feeds[:maxSources]

	// Fan out one pipeline per source; results land in registry order so the
	// first-seen-wins dedup below is reproducible.
	results := make([]sourceResult, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src config.FeedSource) {
			defer wg.Done()
			results[i] = c.collectSource(ctx, src)
		}(i, src)
	}
	wg.Wait()

	var merged []models.Article
	for i, res := range results {
		if res.err != nil {
			log.Printf("Error collecting %s: %v", sources[i].Source, res.err)
			stats.Failures[sources[i].Source] = classify(res.err)
			stats.SourcesFailed++
			continue
		}
		stats.SourcesOK++
		merged = append(merged, res.articles...)
	}
	stats.Processed = len(merged)

	articles := dedupByLink(merged)

	if c.cfg.EnableScraping {
		articles = append(articles, c.scrapePass(ctx, &stats)...)
	}

	articles = dedupByLinkOrTitle(articles)

	// A cancelled run aborts before the sample fallback and the swap; the
	// previous generation stays in place.
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	if len(articles) < c.cfg.MinArticles {
		log.Printf("Only %d articles collected, padding with sample set", len(articles))
		articles = append(articles, c.sampleArticles()...)
		stats.Sampled = true
	}

	if len(articles) == 0 {
		return nil, stats, ErrNoArticles
	}

	c.store.Replace(articles)

	stats.Unique = len(articles)
	stats.Duration = time.Since(start).String()
	log.Printf("Collection done: %d unique articles from %d sources (%d failed) in %s",
		stats.Unique, stats.SourcesOK, stats.SourcesFailed, stats.Duration)
	return articles, stats, nil
}

func (c *Collector) collectSource(ctx context.Context, src config.FeedSource) sourceResult {
	payload, err := c.fetcher.FetchFeed(ctx, src)
	if err != nil {
		return sourceResult{err: err}
	}

	records, err := c.parser.ParseFeed(payload, src.Source)
	if err != nil {
		return sourceResult{err: err}
	}

	cutoff := time.Time{}
	if c.cfg.MaxItemAge > 0 {
		cutoff = time.Now().Add(-c.cfg.MaxItemAge)
	}

	var articles []models.Article
	for _, rec := range records {
		text := rec.Title
		if rec.Description != "" {
			text += " " + rec.Description
		}
		if len(rec.Categories) > 0 {
			text += " " + strings.Join(rec.Categories, " ")
		}
		kws := keywords.Extract(text)

		article := c.normalizer.Normalize(rec, kws, src.Source, src.Category, src.Lang)
		if !cutoff.IsZero() && article.Published.Before(cutoff) {
			continue
		}
		articles = append(articles, article)
	}
	return sourceResult{articles: articles}
}

// scrapePass runs after the feed fan-out has fully settled and is strictly
// additive. Requests are paced one page at a time; per-page failures are
// isolated.
func (c *Collector) scrapePass(ctx context.Context, stats *models.CollectStats) []models.Article {
	var articles []models.Article
	for _, target := range c.cfg.ScrapeTargets {
		for page := 1; page <= target.Pages; page++ {
			if err := c.limiter.Wait(ctx); err != nil {
				return articles
			}

			pageURL := fmt.Sprintf(target.URLTemplate, page)
			payload, err := c.fetcher.FetchPage(ctx, pageURL)
			if err != nil {
				log.Printf("Error scraping %s page %d: %v", target.Name, page, err)
				stats.Failures[fmt.Sprintf("%s#%d", target.Name, page)] = classify(err)
				continue
			}

			for _, rec := range parser.ParsePage(payload, pageURL, target.Source) {
				kws := keywords.Extract(rec.Title)
				articles = append(articles, c.normalizer.Normalize(rec, kws, target.Source, "", target.Lang))
			}
		}
	}
	stats.Processed += len(articles)
	return articles
}

func (c *Collector) sampleArticles() []models.Article {
	var articles []models.Article
	for _, rec := range sampleRecords {
		kws := keywords.Extract(rec.Title + " " + rec.Description)
		articles = append(articles, c.normalizer.Normalize(rec, kws, sampleSource, "IT", "ko"))
	}
	return articles
}

// dedupByLink keeps the first occurrence of each non-synthetic link.
// Synthetic placeholder links are never deduplicated against each other.
func dedupByLink(articles []models.Article) []models.Article {
	seen := make(map[string]bool, len(articles))
	out := articles[:0:0]
	for _, a := range articles {
		if !a.SyntheticLink() {
			if seen[a.Link] {
				continue
			}
			seen[a.Link] = true
		}
		out = append(out, a)
	}
	return out
}

// dedupByLinkOrTitle is the stricter final pass catching cross-source
// republication: equal title is a duplicate signal even when links differ.
func dedupByLinkOrTitle(articles []models.Article) []models.Article {
	seenLinks := make(map[string]bool, len(articles))
	seenTitles := make(map[string]bool, len(articles))
	out := articles[:0:0]
	for _, a := range articles {
		if !a.SyntheticLink() && seenLinks[a.Link] {
			continue
		}
		if a.Title != "" && seenTitles[a.Title] {
			continue
		}
		if !a.SyntheticLink() {
			seenLinks[a.Link] = true
		}
		if a.Title != "" {
			seenTitles[a.Title] = true
		}
		out = append(out, a)
	}
	return out
}

func classify(err error) string {
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "parse"
}
