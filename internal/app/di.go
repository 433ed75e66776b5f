// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/btsguard/internal/config"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	"github.com/allisson/btsguard/internal/http"
	"github.com/allisson/btsguard/internal/metrics"

	auditRepository "github.com/allisson/btsguard/internal/audit/repository"
	auditUseCase "github.com/allisson/btsguard/internal/audit/usecase"
	authUseCase "github.com/allisson/btsguard/internal/auth/usecase"
	backupUseCase "github.com/allisson/btsguard/internal/backup/usecase"
	cryptoUseCase "github.com/allisson/btsguard/internal/crypto/usecase"
	monitorUseCase "github.com/allisson/btsguard/internal/monitor/usecase"
	stationService "github.com/allisson/btsguard/internal/station/service"
	configUseCase "github.com/allisson/btsguard/internal/stationconfig/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	auditRepo       *auditRepository.BoltRepository
	keystoreKey     []byte

	// Station adapters
	stationController   *stationService.ExecController
	credentialInstaller *stationService.CredentialInstaller

	// Use Cases
	auditUseCase       auditUseCase.UseCase
	certificateUseCase cryptoUseCase.CertificateUseCase
	configUseCase      configUseCase.ConfigUseCase
	authUseCase        authUseCase.AuthUseCase
	backupUseCase      backupUseCase.BackupUseCase
	metricsFeed        monitorUseCase.MetricsFeed

	// Servers
	httpServer *http.Server

	// Initialization flags and mutex for thread-safety
	mu                      sync.Mutex
	loggerInit              sync.Once
	metricsProviderInit     sync.Once
	businessMetricsInit     sync.Once
	auditRepoInit           sync.Once
	keystoreKeyInit         sync.Once
	stationControllerInit   sync.Once
	credentialInstallerInit sync.Once
	auditUseCaseInit        sync.Once
	certificateUseCaseInit  sync.Once
	configUseCaseInit       sync.Once
	authUseCaseInit         sync.Once
	backupUseCaseInit       sync.Once
	metricsFeedInit         sync.Once
	httpServerInit          sync.Once
	initErrors              map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// MetricsProvider returns the OpenTelemetry provider backing the Prometheus endpoint.
// It returns nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the recorder used by the use case decorators.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP server if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Releases the instance lock held on the audit database
	if c.auditRepo != nil {
		if err := c.auditRepo.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("audit database close: %w", err))
		}
	}

	if c.keystoreKey != nil {
		cryptoDomain.Zero(c.keystoreKey)
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	// Stdout belongs to the dashboard and command output.
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initMetricsProvider creates the Prometheus-backed provider when metrics are enabled.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

// initBusinessMetrics returns a no-op recorder when metrics are disabled.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}
