// Package server exposes the pipeline as an HTTP trigger.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"SqueezeSentinel/internal/model"
)

// Runner performs one pipeline invocation.
type Runner interface {
	Run(ctx context.Context) *model.RunReport
}

// ServerOption configures Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr            string
	CronSecret      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Gatherer        prometheus.Gatherer
}

// Server wraps the Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	config *ServerConfig
	log    zerolog.Logger
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(runner Runner, log zerolog.Logger, opts ...ServerOption) *Server {
	cfg := &ServerConfig{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Gatherer:        prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	log = log.With().Str("component", "http").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(recoverMiddleware(log))
	e.Use(requestLogging(log))

	h := &handler{runner: runner, secret: cfg.CronSecret, log: log}
	h.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	return &Server{echo: e, config: cfg, log: log}
}

// Start listens in the background.
func (s *Server) Start() error {
	go func() {
		s.log.Info().Str("addr", s.config.Addr).Msg("http server listening")
		if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server error")
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info().Msg("http server stopped gracefully")
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(c *ServerConfig) {
		if addr != "" {
			c.Addr = addr
		}
	}
}

// WithCronSecret requires "Authorization: Bearer <secret>" on the trigger route.
func WithCronSecret(secret string) ServerOption {
	return func(c *ServerConfig) {
		c.CronSecret = secret
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(c *ServerConfig) {
		if d > 0 {
			c.ShutdownTimeout = d
		}
	}
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(c *ServerConfig) {
		if g != nil {
			c.Gatherer = g
		}
	}
}
