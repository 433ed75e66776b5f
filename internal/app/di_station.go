package app

import (
	"context"
	"fmt"
	"os"

	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	cryptoDomain "github.com/allisson/btsguard/internal/crypto/domain"
	"github.com/allisson/btsguard/internal/dashboard"
	"github.com/allisson/btsguard/internal/http"
	monitorService "github.com/allisson/btsguard/internal/monitor/service"
	monitorUseCase "github.com/allisson/btsguard/internal/monitor/usecase"
	stationService "github.com/allisson/btsguard/internal/station/service"
	configRepository "github.com/allisson/btsguard/internal/stationconfig/repository"
	configUseCase "github.com/allisson/btsguard/internal/stationconfig/usecase"
)

// StationController returns the adapter driving the managed base-station service.
func (c *Container) StationController() (*stationService.ExecController, error) {
	var err error
	c.stationControllerInit.Do(func() {
		c.stationController, err = c.initStationController()
		if err != nil {
			c.initErrors["stationController"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["stationController"]; exists {
		return nil, storedErr
	}
	return c.stationController, nil
}

// CredentialInstaller returns the installer that places the active key pair on apply.
func (c *Container) CredentialInstaller(ctx context.Context) (*stationService.CredentialInstaller, error) {
	var err error
	c.credentialInstallerInit.Do(func() {
		c.credentialInstaller, err = c.initCredentialInstaller(ctx)
		if err != nil {
			c.initErrors["credentialInstaller"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["credentialInstaller"]; exists {
		return nil, storedErr
	}
	return c.credentialInstaller, nil
}

// ConfigUseCase returns the configuration store. Loading it verifies the history.
func (c *Container) ConfigUseCase(ctx context.Context) (configUseCase.ConfigUseCase, error) {
	var err error
	c.configUseCaseInit.Do(func() {
		c.configUseCase, err = c.initConfigUseCase(ctx)
		if err != nil {
			c.initErrors["configUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["configUseCase"]; exists {
		return nil, storedErr
	}
	return c.configUseCase, nil
}

// MetricsFeed returns the host and service sampler.
func (c *Container) MetricsFeed() (monitorUseCase.MetricsFeed, error) {
	var err error
	c.metricsFeedInit.Do(func() {
		c.metricsFeed, err = c.initMetricsFeed()
		if err != nil {
			c.initErrors["metricsFeed"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsFeed"]; exists {
		return nil, storedErr
	}
	return c.metricsFeed, nil
}

// HTTPServer returns the metrics and health server.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// DriftWatcher creates a watcher on the live configuration file. Each dashboard
// session owns its own watcher.
func (c *Container) DriftWatcher() (*stationService.DriftWatcher, error) {
	controller, err := c.StationController()
	if err != nil {
		return nil, fmt.Errorf("failed to get station controller for drift watcher: %w", err)
	}
	return stationService.NewDriftWatcher(controller.ConfigPath(), controller.LastWritten, c.Logger())
}

// DashboardController creates the session controller for an authenticated actor.
func (c *Container) DashboardController(ctx context.Context, actor *authDomain.Actor) (*dashboard.Controller, error) {
	auth, err := c.AuthUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth use case for dashboard: %w", err)
	}

	configStore, err := c.ConfigUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config use case for dashboard: %w", err)
	}

	certificates, err := c.CertificateUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate use case for dashboard: %w", err)
	}

	backups, err := c.BackupUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get backup use case for dashboard: %w", err)
	}

	audit, err := c.AuditUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for dashboard: %w", err)
	}

	controller, err := c.StationController()
	if err != nil {
		return nil, fmt.Errorf("failed to get station controller for dashboard: %w", err)
	}

	feed, err := c.MetricsFeed()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics feed for dashboard: %w", err)
	}

	drift, err := c.DriftWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create drift watcher for dashboard: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for dashboard: %w", err)
	}

	return dashboard.NewController(dashboard.Params{
		Actor:           actor,
		Access:          auth,
		Config:          configStore,
		Certificates:    certificates,
		Backups:         backups,
		Service:         controller,
		Feed:            feed,
		Drift:           drift,
		Audit:           audit,
		Metrics:         businessMetrics,
		DefaultSubject:  c.DefaultSubject(),
		DefaultValidity: c.config.CertValidity,
		ExpiryWarning:   c.config.CertExpiryWarning,
		Logger:          c.Logger(),
	}), nil
}

// DefaultSubject is the subject used for generated certificates.
func (c *Container) DefaultSubject() cryptoDomain.Subject {
	return cryptoDomain.Subject{
		CommonName:   c.config.CertCommonName,
		Organization: c.config.CertOrganization,
		Country:      c.config.CertCountry,
	}
}

// initStationController creates the exec-based service adapter.
func (c *Container) initStationController() (*stationService.ExecController, error) {
	controller, err := stationService.NewExecController(stationService.ControllerParams{
		ConfigPath:     c.config.YateConfigPath,
		ReloadCommand:  c.config.YateReloadCommand,
		StatusCommand:  c.config.YateStatusCommand,
		CommandTimeout: c.config.YateCommandTimeout,
		Logger:         c.Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create station controller: %w", err)
	}
	return controller, nil
}

// initCredentialInstaller materializes from the credential store to the TLS paths.
func (c *Container) initCredentialInstaller(ctx context.Context) (*stationService.CredentialInstaller, error) {
	certificates, err := c.CertificateUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate use case for credential installer: %w", err)
	}
	return stationService.NewCredentialInstaller(
		certificates,
		c.config.YateTLSCertPath,
		c.config.YateTLSKeyPath,
		c.Logger(),
	), nil
}

// initConfigUseCase loads the configuration history and wires the apply path.
func (c *Container) initConfigUseCase(ctx context.Context) (configUseCase.ConfigUseCase, error) {
	audit, err := c.AuditUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for config use case: %w", err)
	}

	controller, err := c.StationController()
	if err != nil {
		return nil, fmt.Errorf("failed to get station controller for config use case: %w", err)
	}

	installer, err := c.CredentialInstaller(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get credential installer for config use case: %w", err)
	}

	repo, err := configRepository.NewFileRepository(c.config.ConfigDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration history: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	baseUseCase, err := configUseCase.NewConfigUseCase(ctx, configUseCase.ConfigUseCaseParams{
		Repository:  repo,
		Audit:       audit,
		Station:     controller,
		Credentials: installer,
		Hostname:    hostname,
		Logger:      c.Logger(),
	})
	if err != nil {
		return nil, err
	}

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for config use case: %w", err)
		}
		return configUseCase.NewConfigUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initMetricsFeed samples the host and the service status, and exports the
// samples as gauges when metrics are enabled.
func (c *Container) initMetricsFeed() (monitorUseCase.MetricsFeed, error) {
	controller, err := c.StationController()
	if err != nil {
		return nil, fmt.Errorf("failed to get station controller for metrics feed: %w", err)
	}

	feed := monitorUseCase.NewMetricsFeed(monitorUseCase.FeedParams{
		Collector:      monitorService.NewSystemCollector(controller),
		Interval:       c.config.MonitorInterval,
		CollectTimeout: c.config.MonitorCollectTimeout,
		Logger:         c.Logger(),
	})

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics feed: %w", err)
	}
	if provider != nil {
		if err := monitorUseCase.RegisterGauges(provider.MeterProvider(), c.config.MetricsNamespace, feed); err != nil {
			return nil, fmt.Errorf("failed to register station gauges: %w", err)
		}
	}

	return feed, nil
}

// initHTTPServer creates the metrics and health server.
func (c *Container) initHTTPServer() (*http.Server, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	feed, err := c.MetricsFeed()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics feed for http server: %w", err)
	}

	return http.NewServer(
		c.config.MetricsHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
		c.config.MetricsNamespace,
		feed,
	), nil
}
