package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/btsguard/internal/metrics"
	monitorDomain "github.com/allisson/btsguard/internal/monitor/domain"
)

// SampleSource exposes the most recent metrics sample.
type SampleSource interface {
	Latest() *monitorDomain.Snapshot
}

// Server is the metrics and health endpoint.
type Server struct {
	server *http.Server
	logger *slog.Logger
	feed   SampleSource
}

// NewServer creates a server bound to host:port. provider and feed may be nil;
// /metrics is then not registered and /ready reports not ready.
func NewServer(
	host string,
	port int,
	logger *slog.Logger,
	provider *metrics.Provider,
	namespace string,
	feed SampleSource,
) *Server {
	s := &Server{logger: logger, feed: feed}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(logger))
	if provider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(provider.MeterProvider(), namespace))
		router.GET("/metrics", gin.WrapH(provider.Handler()))
	}
	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting metrics server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down metrics server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler is ready once the metrics feed has produced a fresh sample.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := false

	switch sample := s.latest(); {
	case sample == nil:
		components["metrics_feed"] = "no sample"
	case sample.Stale:
		components["metrics_feed"] = "stale"
	default:
		components["metrics_feed"] = "ok"
		ready = true
		for field, reason := range sample.Unavailable {
			components[string(field)] = reason
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

func (s *Server) latest() *monitorDomain.Snapshot {
	if s.feed == nil {
		return nil
	}
	return s.feed.Latest()
}
