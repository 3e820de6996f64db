package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/url"
	"strings"
	"time"

	"technewsag/internal/models"
	"technewsag/internal/normalizer"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	maxFeedRecords = 15
	maxPageRecords = 20
)

// Parser converts raw feed payloads and scraped HTML into intermediate
// records. Malformed markup is tolerated: anything beyond repair yields an
// empty record list, never a propagated failure.
type Parser struct {
	feed *gofeed.Parser
}

func New() *Parser {
	return &Parser{feed: gofeed.NewParser()}
}

// ParseFeed parses a gateway payload for one source. The payload is either
// the gateway's JSON envelope or raw RSS/Atom XML; both are handled. A
// non-conforming JSON envelope is reported as an error so the caller can
// classify it as a fetch failure; broken XML is recovered to an empty list.
func (p *Parser) ParseFeed(payload []byte, source string) ([]models.Record, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '{' {
		return parseEnvelope(trimmed, source)
	}
	return p.parseXML(trimmed, source), nil
}

// gatewayEnvelope mirrors the feed gateway response. Items carry alternative
// field names depending on the upstream feed flavor.
type gatewayEnvelope struct {
	Status string `json:"status"`
	Items  []struct {
		Title       string   `json:"title"`
		Link        string   `json:"link"`
		URL         string   `json:"url"`
		PubDate     string   `json:"pubDate"`
		Published   string   `json:"published"`
		Description string   `json:"description"`
		Content     string   `json:"content"`
		Categories  []string `json:"categories"`
	} `json:"items"`
}

func parseEnvelope(payload []byte, source string) ([]models.Record, error) {
	var env gatewayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("gateway envelope for %s: %w", source, err)
	}
	if env.Status != "" && env.Status != "ok" {
		return nil, fmt.Errorf("gateway envelope for %s: status %q", source, env.Status)
	}

	var records []models.Record
	for _, item := range env.Items {
		if len(records) >= maxFeedRecords {
			break
		}

		title := cleanText(item.Title)
		if title == "" {
			continue
		}

		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = strings.TrimSpace(item.URL)
		}
		link, ok := resolveLink(link, "", source, len(records))
		if !ok {
			continue
		}

		pubDate := item.PubDate
		if pubDate == "" {
			pubDate = item.Published
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}

		records = append(records, models.Record{
			Title:       title,
			Link:        link,
			PubDate:     toISO(pubDate),
			Description: cleanText(desc),
			Categories:  item.Categories,
		})
	}
	return records, nil
}

func (p *Parser) parseXML(payload []byte, source string) []models.Record {
	feed, err := p.feed.Parse(bytes.NewReader(repairFragment(payload)))
	if err != nil {
		log.Printf("Parse error for %s, returning empty set: %v", source, err)
		return nil
	}

	var records []models.Record
	for _, item := range feed.Items {
		if len(records) >= maxFeedRecords {
			break
		}

		title := cleanText(item.Title)
		if title == "" {
			continue
		}

		link, ok := resolveLink(item.Link, item.GUID, source, len(records))
		if !ok {
			continue
		}

		pubDate := ""
		if item.PublishedParsed != nil {
			pubDate = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			pubDate = item.UpdatedParsed.UTC().Format(time.RFC3339)
		} else {
			pubDate = time.Now().UTC().Format(time.RFC3339)
		}

		records = append(records, models.Record{
			Title:       title,
			Link:        link,
			PubDate:     pubDate,
			Description: cleanText(item.Description),
			Categories:  item.Categories,
		})
	}
	return records
}

// resolveLink applies the link fallback chain: the item link, then a GUID
// that is itself a URL, then a synthetic placeholder. The placeholder is
// granted only to the very first record of a source so that a feed with no
// links at all still surfaces one item; later linkless items are dropped.
func resolveLink(link, guid, source string, index int) (string, bool) {
	link = strings.TrimSpace(link)
	if link != "" {
		return link, true
	}
	guid = strings.TrimSpace(guid)
	if strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
		return guid, true
	}
	if index == 0 {
		return fmt.Sprintf("#%s-%d", source, index), true
	}
	return "", false
}

// repairFragment wraps bare <item>/<entry> fragments in a minimal feed
// document so the feed parser accepts them.
func repairFragment(payload []byte) []byte {
	head := payload
	if len(head) > 256 {
		head = head[:256]
	}
	s := string(head)
	if strings.Contains(s, "<rss") || strings.Contains(s, "<feed") || strings.Contains(s, "<channel") {
		return payload
	}
	if strings.Contains(s, "<entry") {
		var b bytes.Buffer
		b.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom"><title>f</title>`)
		b.Write(payload)
		b.WriteString(`</feed>`)
		return b.Bytes()
	}
	if strings.Contains(s, "<item") {
		var b bytes.Buffer
		b.WriteString(`<rss version="2.0"><channel><title>f</title>`)
		b.Write(payload)
		b.WriteString(`</channel></rss>`)
		return b.Bytes()
	}
	return payload
}

// ParsePage extracts headline records from loosely structured HTML using
// best-effort selectors, capped per page. Structure varies per site, so this
// stays heuristic: prefer anchors inside headline elements, fall back to any
// anchor with headline-length text.
func ParsePage(payload []byte, baseURL, source string) []models.Record {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		log.Printf("Parse error for scraped page %s, returning empty set: %v", source, err)
		return nil
	}

	base, _ := url.Parse(baseURL)

	var records []models.Record
	seen := make(map[string]bool)

	collect := func(sel *goquery.Selection) {
		if len(records) >= maxPageRecords {
			return
		}
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		title := cleanText(sel.Text())
		if len([]rune(title)) < 8 {
			return
		}
		link := absoluteURL(base, href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		records = append(records, models.Record{
			Title: title,
			Link:  link,
		})
	}

	doc.Find("h1 a[href], h2 a[href], h3 a[href], .news-tit a[href], .article-title a[href]").Each(func(_ int, sel *goquery.Selection) {
		collect(sel)
	})
	if len(records) < maxPageRecords {
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			collect(sel)
		})
	}
	return records
}

func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

// cleanText decodes HTML entities, strips any leftover tags and collapses
// whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(s)
	s = normalizer.StripTags(s)
	return strings.Join(strings.Fields(s), " ")
}

// toISO normalizes a feed timestamp to RFC 3339, keeping the raw value when
// the format is unrecognized so the normalizer can apply its own fallback.
func toISO(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range []string{
		time.RFC3339,
		time.RFC1123Z,
		time.RFC1123,
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return s
}
