package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"technewsag/internal/cache"
	"technewsag/internal/config"
	"technewsag/internal/models"
	"technewsag/internal/query"
	"technewsag/internal/security"

	"github.com/gin-gonic/gin"
)

type Server struct {
	router    *gin.Engine
	collector cache.Collector
	engine    *query.Engine
	store     *cache.Store
	refresher *cache.Refresher
	cfg       *config.Config
}

func NewServer(col cache.Collector, engine *query.Engine, store *cache.Store, refresher *cache.Refresher, cfg *config.Config) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	securityConfig := &security.SecurityConfig{
		EnableRateLimit:       cfg.Security.EnableRateLimit,
		RateLimitPerSecond:    cfg.Security.RateLimitPerSecond,
		RateLimitBurst:        cfg.Security.RateLimitBurst,
		EnableCORS:            cfg.Security.EnableCORS,
		AllowedOrigins:        cfg.Security.AllowedOrigins,
		EnableSecurityHeaders: cfg.Security.EnableSecurityHeaders,
		MaxRequestSize:        cfg.Security.MaxRequestSize,
		EnableRequestID:       cfg.Security.EnableRequestID,
	}
	security.SetupSecurityMiddleware(router, securityConfig)

	server := &Server{
		router:    router,
		collector: col,
		engine:    engine,
		store:     store,
		refresher: refresher,
		cfg:       cfg,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api/v1")
	{
		api.GET("/articles", s.getArticles)
		api.GET("/articles/timeline", s.getTimeline)
		api.POST("/articles/:id/favorite", s.toggleFavorite)
		api.POST("/collect", s.collect)
		api.GET("/keywords/stats", s.getKeywordStats)
		api.GET("/keywords/network", s.getKeywordNetwork)
		api.GET("/categories/stats", s.getCategoryStats)
		api.GET("/cache/status", s.getCacheStatus)
		api.GET("/sources", s.getSources)
	}
}

func (s *Server) Start() error {
	return s.router.Run(":" + strconv.Itoa(s.cfg.Port))
}

// StartWithContext runs the server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) StartWithContext(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(s.cfg.Port),
		Handler: s.router,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"service":          "technews-aggregator",
		"refresher_active": s.refresher.IsRunning(),
		"cache_valid":      s.store.IsValid(),
	})
}

func (s *Server) getArticles(c *gin.Context) {
	criteria := models.Criteria{
		Search:        c.Query("search"),
		Source:        c.Query("source"),
		FavoritesOnly: c.Query("favorites") == "true",
	}
	if from := c.Query("from"); from != "" {
		criteria.From = parseDateParam(from, false)
	}
	if to := c.Query("to"); to != "" {
		criteria.To = parseDateParam(to, true)
	}

	articles := s.engine.Filter(criteria)
	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"count":    len(articles),
	})
}

// parseDateParam accepts RFC 3339 timestamps or bare dates. Bare dates used
// as an upper bound are extended to the end of that day so the range stays
// inclusive.
func parseDateParam(val string, upper bool) time.Time {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", val); err == nil {
		if upper {
			return t.Add(24*time.Hour - time.Nanosecond)
		}
		return t
	}
	return time.Time{}
}

func (s *Server) toggleFavorite(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid article id",
		})
		return
	}

	// Unknown ids are a deliberate no-op.
	s.engine.FavoriteToggle(id)
	c.JSON(http.StatusOK, gin.H{
		"id": id,
	})
}

func (s *Server) collect(c *gin.Context) {
	maxSources := 0
	if v := c.Query("max_sources"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			maxSources = n
		}
	}

	// Collection runs to completion; a client disconnect must not cancel
	// in-flight fetches.
	articles, stats, err := s.collector.Collect(context.Background(), maxSources)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": err.Error(),
			"stats": stats,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"count":    len(articles),
		"stats":    stats,
	})
}

func (s *Server) getKeywordStats(c *gin.Context) {
	stats := s.engine.KeywordStats()
	c.JSON(http.StatusOK, gin.H{
		"keywords": stats,
		"count":    len(stats),
	})
}

func (s *Server) getKeywordNetwork(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.KeywordNetwork())
}

func (s *Server) getTimeline(c *gin.Context) {
	points := s.engine.Timeline()
	c.JSON(http.StatusOK, gin.H{
		"timeline": points,
		"count":    len(points),
	})
}

func (s *Server) getCategoryStats(c *gin.Context) {
	stats := s.engine.CategoryStats()
	c.JSON(http.StatusOK, gin.H{
		"categories": stats,
		"count":      len(stats),
	})
}

func (s *Server) getCacheStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Status())
}

func (s *Server) getSources(c *gin.Context) {
	sources := make([]gin.H, 0, len(s.cfg.Feeds))
	for _, f := range s.cfg.Feeds {
		sources = append(sources, gin.H{
			"source":   f.Source,
			"category": f.Category,
			"lang":     f.Lang,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"count":   len(sources),
	})
}
