// Package server exposes the page controller as a JSON API for the web client.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ppiankov/feedlens/internal/page"
)

// Server serves /api, /metrics and /healthz
type Server struct {
	ctrl     *page.Controller
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
	version  string
	engine   *gin.Engine
}

// Option configures a Server
type Option func(*Server)

// WithGatherer sets the registry served on /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported by /healthz
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a server around ctrl
func New(ctrl *page.Controller, opts ...Option) *Server {
	s := &Server{
		ctrl:     ctrl,
		gatherer: prometheus.DefaultGatherer,
		logger:   zerolog.Nop(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := engine.Group("/api")
	api.GET("/feed", s.handleFeed)
	api.GET("/variant", s.handleGetVariant)
	api.PUT("/variant", s.handleSetVariant)
	api.DELETE("/variant", s.handleClearVariant)

	posts := api.Group("/posts/:id")
	posts.GET("", s.handlePostDetail)
	posts.POST("/like", s.handleLike)
	posts.POST("/share", s.handleShare)
	posts.POST("/comment", s.handleComment)
	posts.POST("/back", s.handleBack)
	posts.POST("/profile-click", s.handleProfileClick)
	posts.POST("/visibility", s.handleVisibility)
	posts.POST("/scroll", s.handleScroll)
	posts.POST("/unload", s.handleUnload)

	s.engine = engine
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

// HealthResponse is returned by /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}
