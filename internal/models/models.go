package models

import (
	"time"
)

// Article is the canonical unit produced by a collection run.
type Article struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Link       string    `json:"link"`
	Published  time.Time `json:"published"`
	Source     string    `json:"source"`
	Summary    string    `json:"summary,omitempty"`
	Keywords   []string  `json:"keywords"`
	IsFavorite bool      `json:"is_favorite"`
	Category   string    `json:"category,omitempty"`
	Language   string    `json:"language,omitempty"`
}

// SyntheticLink reports whether the article link is a generated placeholder
// rather than a real URL. Synthetic links are exempt from deduplication.
func (a *Article) SyntheticLink() bool {
	return len(a.Link) > 0 && a.Link[0] == '#'
}

// Record is the intermediate result of parsing one feed item or scraped row,
// before keyword extraction and normalization.
type Record struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	PubDate     string   `json:"pubDate"`
	Description string   `json:"description"`
	Categories  []string `json:"categories,omitempty"`
}

// KeywordStat counts distinct articles containing a keyword.
type KeywordStat struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// NetworkNode is a keyword node in the co-occurrence graph.
type NetworkNode struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Value int    `json:"value"`
}

// NetworkEdge connects two keywords that co-occur in the same article.
type NetworkEdge struct {
	From  int `json:"from"`
	To    int `json:"to"`
	Value int `json:"value"`
}

// NetworkGraph is the derived keyword co-occurrence network.
type NetworkGraph struct {
	Nodes []NetworkNode `json:"nodes"`
	Edges []NetworkEdge `json:"edges"`
}

// TimelinePoint counts articles published on one day.
type TimelinePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CategoryStat counts articles per registry category.
type CategoryStat struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Criteria describes an article filter. Zero values mean "no constraint";
// all set criteria are AND-combined.
type Criteria struct {
	Search        string    `json:"search"`
	Source        string    `json:"source"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	FavoritesOnly bool      `json:"favorites_only"`
}

// CacheStatus reports the current cache generation state.
type CacheStatus struct {
	Valid      bool      `json:"valid"`
	Articles   int       `json:"articles"`
	LastUpdate time.Time `json:"last_update"`
	TTL        string    `json:"ttl"`
}

// CollectStats summarizes one collection run.
type CollectStats struct {
	SourcesOK     int               `json:"sources_ok"`
	SourcesFailed int               `json:"sources_failed"`
	Failures      map[string]string `json:"failures,omitempty"`
	Processed     int               `json:"processed"`
	Unique        int               `json:"unique"`
	Sampled       bool              `json:"sampled"`
	Duration      string            `json:"duration"`
}
