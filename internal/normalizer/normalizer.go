package normalizer

import (
	"html"
	"strings"
	"sync/atomic"
	"time"

	"technewsag/internal/models"
)

const (
	maxTitleLen   = 200
	maxSummaryLen = 200
)

// Normalizer assembles parsed records and extracted keywords into canonical
// articles. IDs are sequential per process lifetime and never reused.
type Normalizer struct {
	seq int64
	now func() time.Time
}

func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize never fails: every field has a defined default.
func (n *Normalizer) Normalize(rec models.Record, kws []string, source, category, lang string) models.Article {
	if kws == nil {
		kws = []string{}
	}
	return models.Article{
		ID:        atomic.AddInt64(&n.seq, 1),
		Title:     CleanTitle(rec.Title),
		Link:      strings.TrimSpace(rec.Link),
		Published: n.parseDate(rec.PubDate),
		Source:    source,
		Summary:   Summarize(rec.Description),
		Keywords:  kws,
		Category:  category,
		Language:  lang,
	}
}

func (n *Normalizer) parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return n.now().UTC()
	}
	for _, layout := range []string{
		time.RFC3339,
		time.RFC1123Z,
		time.RFC1123,
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil && !t.IsZero() {
			return t.UTC()
		}
	}
	return n.now().UTC()
}

// CleanTitle strips entities and tags, collapses whitespace and bounds the
// length.
func CleanTitle(s string) string {
	s = html.UnescapeString(s)
	s = StripTags(s)
	s = strings.Join(strings.Fields(s), " ")
	return truncate(s, maxTitleLen)
}

// Summarize produces a short cleaned summary, cut at a sentence boundary
// when one falls inside the bound.
func Summarize(s string) string {
	s = html.UnescapeString(s)
	s = StripTags(s)
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) <= maxSummaryLen {
		return s
	}
	window := string(runes[:maxSummaryLen])
	if cut := lastSentenceEnd(window); cut > 0 {
		return strings.TrimSpace(window[:cut])
	}
	return truncate(s, maxSummaryLen)
}

func lastSentenceEnd(s string) int {
	best := -1
	for _, mark := range []string{". ", "! ", "? ", "다. "} {
		if idx := strings.LastIndex(s, mark); idx >= 0 {
			end := idx + len(mark) - 1
			if end > best {
				best = end
			}
		}
	}
	if best < 0 && strings.HasSuffix(s, ".") {
		best = len(s)
	}
	return best
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// StripTags removes everything between angle brackets. The parser shares it
// for feed-item cleaning.
func StripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
