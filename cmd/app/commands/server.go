package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/btsguard/internal/app"
	authDomain "github.com/allisson/btsguard/internal/auth/domain"
	"github.com/allisson/btsguard/internal/config"
	monitorDomain "github.com/allisson/btsguard/internal/monitor/domain"
	"github.com/allisson/btsguard/internal/tui"
)

// shutdownTimeout bounds the graceful stop of the metrics server.
const shutdownTimeout = 10 * time.Second

// RunMonitor samples the station and serves /metrics, /health and /ready until
// SIGINT/SIGTERM.
func RunMonitor(ctx context.Context, version string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting monitor", slog.String("version", version))

	defer closeContainer(container, logger)

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	feed, err := container.MetricsFeed()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics feed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feed.Run(gctx, func(*monitorDomain.Snapshot) {})
	})
	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// RunDashboard authenticates the operator and runs the interactive dashboard.
// The metrics server runs alongside it when enabled.
func RunDashboard(ctx context.Context, streams IOTuple, operator, totpCode string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	auth, err := container.AuthUseCase(ctx)
	if err != nil {
		return err
	}
	actor, err := Login(ctx, auth, streams, operator, totpCode, authDomain.ActionView)
	if err != nil {
		return err
	}

	controller, err := container.DashboardController(ctx, actor)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsEnabled {
		server, err := container.HTTPServer()
		if err != nil {
			return fmt.Errorf("failed to initialize HTTP server: %w", err)
		}
		g.Go(func() error {
			if err := server.Start(gctx); err != nil {
				logger.Error("metrics server error", slog.Any("error", err))
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		defer cancel()
		return tui.Run(gctx, controller)
	})

	return g.Wait()
}
