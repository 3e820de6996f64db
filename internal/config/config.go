package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// FeedSource is one entry of the static feed registry.
type FeedSource struct {
	FeedURL  string
	Source   string
	Category string
	Lang     string
}

// ScrapeTarget is one entry of the static scraping registry. URLTemplate
// contains a single %d placeholder for the page number.
type ScrapeTarget struct {
	Name        string
	URLTemplate string
	Source      string
	Lang        string
	Pages       int
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	EnableRateLimit       bool
	RateLimitPerSecond    float64
	RateLimitBurst        int
	EnableCORS            bool
	AllowedOrigins        []string
	EnableSecurityHeaders bool
	MaxRequestSize        int64
	EnableRequestID       bool
}

type Config struct {
	Port              int
	DataDir           string
	LogLevel          string
	GatewayURL        string
	ProxyURL          string
	FetchTimeout      time.Duration
	FetchCount        int
	CacheTTL          time.Duration
	MaxSources        int
	RefreshMaxSources int
	MinArticles       int
	MaxItemAge        time.Duration
	EnableScraping    bool
	ScrapeDelay       time.Duration
	Feeds             []FeedSource
	ScrapeTargets     []ScrapeTarget
	Security          SecurityConfig
}

func Load() *Config {
	cfg := &Config{
		Port:              getEnvAsInt("PORT", 8080),
		DataDir:           getEnv("DATA_DIR", "./data"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		GatewayURL:        getEnv("FEED_GATEWAY_URL", "https://api.rss2json.com/v1/api.json"),
		ProxyURL:          getEnv("PAGE_PROXY_URL", "https://api.allorigins.win/get"),
		FetchTimeout:      getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
		FetchCount:        getEnvAsInt("FETCH_COUNT", 15),
		CacheTTL:          getEnvAsDuration("CACHE_TTL", 30*time.Minute),
		MaxSources:        getEnvAsInt("MAX_SOURCES", 12),
		RefreshMaxSources: getEnvAsInt("REFRESH_MAX_SOURCES", 6),
		MinArticles:       getEnvAsInt("MIN_ARTICLES", 10),
		MaxItemAge:        getEnvAsDuration("MAX_ITEM_AGE", 7*24*time.Hour),
		EnableScraping:    getEnvAsBool("ENABLE_SCRAPING", true),
		ScrapeDelay:       getEnvAsDuration("SCRAPE_DELAY", time.Second),
		Security:          loadSecurityConfig(),
	}

	cfg.Feeds = defaultFeeds()
	cfg.ScrapeTargets = defaultScrapeTargets()

	return cfg
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		EnableRateLimit:       getEnvAsBool("ENABLE_RATE_LIMIT", true),
		RateLimitPerSecond:    getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10.0),
		RateLimitBurst:        getEnvAsInt("RATE_LIMIT_BURST", 20),
		EnableCORS:            getEnvAsBool("ENABLE_CORS", true),
		AllowedOrigins:        getEnvAsStringSlice("ALLOWED_ORIGINS", []string{"*"}),
		EnableSecurityHeaders: getEnvAsBool("ENABLE_SECURITY_HEADERS", true),
		MaxRequestSize:        getEnvAsInt64("MAX_REQUEST_SIZE", 10<<20), // 10MB
		EnableRequestID:       getEnvAsBool("ENABLE_REQUEST_ID", true),
	}
}

// defaultFeeds is the static registry of technology-news feeds. Order matters:
// the collector iterates it front to back and the dedup pass keeps the first
// occurrence of a link.
func defaultFeeds() []FeedSource {
	return []FeedSource{
		// Korean tech news
		{FeedURL: "https://it.donga.com/feeds/rss/", Source: "IT동아", Category: "IT", Lang: "ko"},
		{FeedURL: "https://rss.etnews.com/Section902.xml", Source: "전자신문", Category: "IT", Lang: "ko"},
		{FeedURL: "https://zdnet.co.kr/news/news_xml.asp", Source: "ZDNet Korea", Category: "IT", Lang: "ko"},
		{FeedURL: "https://www.itworld.co.kr/rss/all.xml", Source: "ITWorld Korea", Category: "IT", Lang: "ko"},
		{FeedURL: "https://www.bloter.net/feed", Source: "Bloter", Category: "IT", Lang: "ko"},
		{FeedURL: "https://platum.kr/feed", Source: "Platum", Category: "Startup", Lang: "ko"},
		{FeedURL: "https://www.boannews.com/media/news_rss.xml", Source: "보안뉴스", Category: "Security", Lang: "ko"},
		{FeedURL: "https://it.chosun.com/rss.xml", Source: "IT조선", Category: "IT", Lang: "ko"},

		// Global tech news
		{FeedURL: "https://techcrunch.com/feed/", Source: "TechCrunch", Category: "Tech", Lang: "en"},
		{FeedURL: "https://www.theverge.com/rss/index.xml", Source: "The Verge", Category: "Tech", Lang: "en"},
		{FeedURL: "https://www.wired.com/feed/rss", Source: "WIRED", Category: "Tech", Lang: "en"},
		{FeedURL: "https://www.engadget.com/rss.xml", Source: "Engadget", Category: "Tech", Lang: "en"},
		{FeedURL: "https://venturebeat.com/category/ai/feed/", Source: "VentureBeat AI", Category: "AI", Lang: "en"},
		{FeedURL: "https://arstechnica.com/feed/", Source: "Ars Technica", Category: "Tech", Lang: "en"},
		{FeedURL: "https://spectrum.ieee.org/rss/fulltext", Source: "IEEE Spectrum", Category: "Engineering", Lang: "en"},
	}
}

func defaultScrapeTargets() []ScrapeTarget {
	return []ScrapeTarget{
		{Name: "hankyung-it", URLTemplate: "https://www.hankyung.com/it?page=%d", Source: "한국경제 IT", Lang: "ko", Pages: 2},
		{Name: "kbench", URLTemplate: "https://kbench.com/?q=node&page=%d", Source: "KBench", Lang: "ko", Pages: 2},
	}
}

func getEnv(key string, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultVal
}
