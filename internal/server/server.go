// Package server exposes the converters over HTTP.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/matsen/bibhub/internal/config"
	"github.com/matsen/bibhub/internal/format"
)

// Server is the HTTP conversion service.
type Server struct {
	cfg    config.ServerConfig
	opts   format.Options
	router *gin.Engine
}

// New builds a server. Unset settings in cfg take their defaults; opts are
// the generator defaults that query parameters override.
func New(cfg config.ServerConfig, opts format.Options) *Server {
	s := &Server{cfg: cfg.WithDefaults(), opts: opts.Normalize()}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), RequestID())

	router.GET("/health", s.health)
	router.GET("/formats", s.formats)

	api := router.Group("")
	api.Use(
		RateLimit(s.cfg.Rate, s.cfg.Burst),
		BodyLimit(s.cfg.MaxBodyKB*1024),
		Timeout(s.cfg.Timeout),
	)
	api.POST("/convert", s.convertText)
	api.POST("/parse", s.parse)
	api.POST("/generate", s.generate)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		log.Printf("bibhub server listening on %s", s.cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
