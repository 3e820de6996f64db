package query

import (
	"fmt"
	"sort"
	"strings"

	"technewsag/internal/cache"
	"technewsag/internal/models"
)

const (
	maxKeywordStats = 30
	maxNetworkNodes = 15
	maxNetworkEdges = 20
	minEdgeCount    = 2

	statsCacheKey    = "stats:keywords"
	networkCacheKey  = "stats:network"
	timelineCacheKey = "stats:timeline"
	categoryCacheKey = "stats:categories"
)

// Engine answers read queries against the current cache generation. It never
// mutates the snapshot; the favorite toggle delegates to the store's single
// sanctioned mutation path.
type Engine struct {
	store *cache.Store
	memo  *cache.Manager
}

func NewEngine(store *cache.Store, memo *cache.Manager) *Engine {
	return &Engine{store: store, memo: memo}
}

// memoKey versions a cache key by the store generation, so a result computed
// against an older article set is never served after a swap.
func (e *Engine) memoKey(prefix string) string {
	return fmt.Sprintf("%s:%d", prefix, e.store.Generation())
}

// Filter returns articles matching all set criteria, sorted by published
// date descending regardless of input order.
func (e *Engine) Filter(criteria models.Criteria) []models.Article {
	snapshot, _ := e.store.Snapshot()

	search := strings.ToLower(strings.TrimSpace(criteria.Search))

	result := make([]models.Article, 0, len(snapshot))
	for _, a := range snapshot {
		if criteria.FavoritesOnly && !a.IsFavorite {
			continue
		}
		if criteria.Source != "" && a.Source != criteria.Source {
			continue
		}
		if !criteria.From.IsZero() && a.Published.Before(criteria.From) {
			continue
		}
		if !criteria.To.IsZero() && a.Published.After(criteria.To) {
			continue
		}
		if search != "" && !matchesSearch(a, search) {
			continue
		}
		result = append(result, a)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Published.After(result[j].Published)
	})
	return result
}

func matchesSearch(a models.Article, search string) bool {
	if strings.Contains(strings.ToLower(a.Title), search) {
		return true
	}
	if strings.Contains(strings.ToLower(a.Summary), search) {
		return true
	}
	for _, kw := range a.Keywords {
		if strings.Contains(strings.ToLower(kw), search) {
			return true
		}
	}
	return false
}

// FavoriteToggle flips the favorite flag on the matching article. Unknown
// ids are a no-op, never an error.
func (e *Engine) FavoriteToggle(id int64) {
	e.store.ToggleFavorite(id)
}

// KeywordStats counts distinct-article occurrences per keyword across the
// full current set, sorted descending and capped. Results are memoized until
// the next generation swap.
func (e *Engine) KeywordStats() []models.KeywordStat {
	key := e.memoKey(statsCacheKey)
	if cached, found := e.memo.Get(key); found {
		if stats, ok := cached.([]models.KeywordStat); ok {
			return stats
		}
	}

	snapshot, _ := e.store.Snapshot()

	counts := make(map[string]int)
	for _, a := range snapshot {
		seen := make(map[string]bool, len(a.Keywords))
		for _, kw := range a.Keywords {
			if seen[kw] {
				continue
			}
			seen[kw] = true
			counts[kw]++
		}
	}

	stats := make([]models.KeywordStat, 0, len(counts))
	for kw, n := range counts {
		stats = append(stats, models.KeywordStat{Keyword: kw, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Keyword < stats[j].Keyword
	})
	if len(stats) > maxKeywordStats {
		stats = stats[:maxKeywordStats]
	}

	e.memo.Set(key, stats, 0)
	return stats
}

// KeywordNetwork builds the co-occurrence graph over the top keywords: nodes
// are the top 15 keywords (value is count doubled, a visual-weight
// convention), edges are keyword pairs co-occurring in more than one
// article, capped at 20.
func (e *Engine) KeywordNetwork() models.NetworkGraph {
	key := e.memoKey(networkCacheKey)
	if cached, found := e.memo.Get(key); found {
		if graph, ok := cached.(models.NetworkGraph); ok {
			return graph
		}
	}

	stats := e.KeywordStats()
	if len(stats) > maxNetworkNodes {
		stats = stats[:maxNetworkNodes]
	}

	nodeIDs := make(map[string]int, len(stats))
	nodes := make([]models.NetworkNode, 0, len(stats))
	for i, s := range stats {
		nodeIDs[s.Keyword] = i
		nodes = append(nodes, models.NetworkNode{ID: i, Label: s.Keyword, Value: s.Count * 2})
	}

	type pair struct{ a, b int }
	pairCounts := make(map[pair]int)

	snapshot, _ := e.store.Snapshot()
	for _, article := range snapshot {
		var present []int
		seen := make(map[int]bool)
		for _, kw := range article.Keywords {
			if id, ok := nodeIDs[kw]; ok && !seen[id] {
				seen[id] = true
				present = append(present, id)
			}
		}
		sort.Ints(present)
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				pairCounts[pair{present[i], present[j]}]++
			}
		}
	}

	edges := make([]models.NetworkEdge, 0, len(pairCounts))
	for p, n := range pairCounts {
		if n < minEdgeCount {
			continue
		}
		edges = append(edges, models.NetworkEdge{From: p.a, To: p.b, Value: n})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Value != edges[j].Value {
			return edges[i].Value > edges[j].Value
		}
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	if len(edges) > maxNetworkEdges {
		edges = edges[:maxNetworkEdges]
	}

	graph := models.NetworkGraph{Nodes: nodes, Edges: edges}
	e.memo.Set(key, graph, 0)
	return graph
}

// Timeline counts articles per publication day across the current set,
// ascending by date.
func (e *Engine) Timeline() []models.TimelinePoint {
	key := e.memoKey(timelineCacheKey)
	if cached, found := e.memo.Get(key); found {
		if points, ok := cached.([]models.TimelinePoint); ok {
			return points
		}
	}

	snapshot, _ := e.store.Snapshot()

	counts := make(map[string]int)
	for _, a := range snapshot {
		counts[a.Published.UTC().Format("2006-01-02")]++
	}

	points := make([]models.TimelinePoint, 0, len(counts))
	for day, n := range counts {
		points = append(points, models.TimelinePoint{Date: day, Count: n})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})

	e.memo.Set(key, points, 0)
	return points
}

// CategoryStats counts articles per registry category, descending with an
// alphabetical tie-break. Articles without a category are grouped under 기타.
func (e *Engine) CategoryStats() []models.CategoryStat {
	key := e.memoKey(categoryCacheKey)
	if cached, found := e.memo.Get(key); found {
		if stats, ok := cached.([]models.CategoryStat); ok {
			return stats
		}
	}

	snapshot, _ := e.store.Snapshot()

	counts := make(map[string]int)
	for _, a := range snapshot {
		cat := a.Category
		if cat == "" {
			cat = "기타"
		}
		counts[cat]++
	}

	stats := make([]models.CategoryStat, 0, len(counts))
	for cat, n := range counts {
		stats = append(stats, models.CategoryStat{Category: cat, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Category < stats[j].Category
	})

	e.memo.Set(key, stats, 0)
	return stats
}
