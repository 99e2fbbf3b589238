package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/brettboylen/reddit-wrapped/models"
)

const shutdownTimeout = 5 * time.Second

// Analyzer produces wrapped stats for an analysis request
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error)
}

// Config holds the HTTP server settings
type Config struct {
	Port              int
	RequestsPerMinute int // per client IP, applied to /api routes
}

// Server is the HTTP API in front of the analyzer
type Server struct {
	echo     *echo.Echo
	analyzer Analyzer
	port     int
	log      *logrus.Logger
}

// New creates the server and registers its middleware and routes
func New(analyzer Analyzer, cfg Config, log *logrus.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		analyzer: analyzer,
		port:     cfg.Port,
		log:      log,
	}

	// middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(log))
	e.Use(middleware.Recover())
	e.Use(prometheusMiddleware())

	api := e.Group("/api", rateLimiter(cfg.RequestsPerMinute))
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/wrapped/:username", s.handleWrapped)

	// health check endpoint; useful for k8s liveliness probes
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		serverAddr := fmt.Sprintf(":%d", s.port)
		s.log.WithField("port", s.port).Info("Starting API server")
		if err := s.echo.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown failed: %w", err)
	}
	return nil
}

// rateLimiter limits /api requests per client IP
func rateLimiter(requestsPerMinute int) echo.MiddlewareFunc {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}

	denied := func(ctx echo.Context) error {
		return ctx.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Type:    models.ResponseTypeError,
			Message: "Rate limit exceeded, please try again later",
		})
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(requestsPerMinute) / 60.0),
				Burst:     max(1, requestsPerMinute/60),
				ExpiresIn: 3 * time.Minute,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return denied(ctx)
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return denied(ctx)
		},
	})
}
