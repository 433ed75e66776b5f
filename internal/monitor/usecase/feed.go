// Package usecase implements the metrics feed: periodic, independently fallible
// sampling whose latest result is readable without blocking.
package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	monitorDomain "github.com/allisson/btsguard/internal/monitor/domain"
	monitorService "github.com/allisson/btsguard/internal/monitor/service"
)

// MetricsFeed samples host and service metrics.
type MetricsFeed interface {
	// Sample collects every field now. When called faster than the sampling rate
	// allows it returns the latest sample instead.
	Sample(ctx context.Context) *monitorDomain.Snapshot

	// Latest returns the last sample without blocking, flagged Stale when it is
	// older than two intervals or a sample has been in flight longer than one.
	// It returns nil before the first sample.
	Latest() *monitorDomain.Snapshot

	// Run samples every interval and hands each sample to publish until ctx ends.
	Run(ctx context.Context, publish func(*monitorDomain.Snapshot)) error
}

// FeedParams configures the metrics feed.
type FeedParams struct {
	Collector      monitorService.Collector
	Interval       time.Duration
	CollectTimeout time.Duration
	Logger         *slog.Logger
}

type feed struct {
	collector monitorService.Collector
	interval  time.Duration
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *slog.Logger
	now       func() time.Time

	latest        atomic.Pointer[monitorDomain.Snapshot]
	inFlightSince atomic.Int64
	sampling      sync.Mutex
}

// NewMetricsFeed creates a feed. On-demand samples are limited to two per interval.
func NewMetricsFeed(params FeedParams) MetricsFeed {
	return &feed{
		collector: params.Collector,
		interval:  params.Interval,
		timeout:   params.CollectTimeout,
		limiter:   rate.NewLimiter(rate.Every(params.Interval/2), 2),
		logger:    params.Logger,
		now:       time.Now,
	}
}

// Sample runs every collector concurrently, each under its own timeout.
func (f *feed) Sample(ctx context.Context) *monitorDomain.Snapshot {
	if !f.limiter.Allow() {
		if latest := f.Latest(); latest != nil {
			return latest
		}
	}

	f.sampling.Lock()
	defer f.sampling.Unlock()

	f.inFlightSince.Store(f.now().UnixNano())
	defer f.inFlightSince.Store(0)

	snapshot := &monitorDomain.Snapshot{}
	var mu sync.Mutex
	store := func(field monitorDomain.Field, err error, set func()) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			set()
			return
		}
		if snapshot.Unavailable == nil {
			snapshot.Unavailable = make(map[monitorDomain.Field]string)
		}
		snapshot.Unavailable[field] = err.Error()
	}

	var g errgroup.Group
	g.Go(func() error {
		reading, err := collect(ctx, f.timeout, f.collector.CPULoad)
		store(monitorDomain.FieldCPU, err, func() { snapshot.CPU = reading })
		return nil
	})
	g.Go(func() error {
		reading, err := collect(ctx, f.timeout, f.collector.Memory)
		store(monitorDomain.FieldMemory, err, func() { snapshot.Memory = reading })
		return nil
	})
	g.Go(func() error {
		sessions, err := collect(ctx, f.timeout, f.collector.ActiveSessions)
		store(monitorDomain.FieldSessions, err, func() { snapshot.Sessions = &sessions })
		return nil
	})
	g.Go(func() error {
		interfaces, err := collect(ctx, f.timeout, f.collector.Interfaces)
		store(monitorDomain.FieldInterfaces, err, func() { snapshot.Interfaces = interfaces })
		return nil
	})
	_ = g.Wait()

	snapshot.TakenAt = f.now()
	for field, reason := range snapshot.Unavailable {
		f.logger.Debug("metric unavailable", slog.String("field", string(field)), slog.String("error", reason))
	}
	f.latest.Store(snapshot)
	return snapshot.Clone()
}

// collect runs fn under timeout. A collector that ignores its context is
// abandoned when the deadline passes; its result is discarded.
func collect[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(cctx)
		done <- result{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-cctx.Done():
		var zero T
		return zero, cctx.Err()
	}
}

// Latest returns a copy of the last sample with the stale flag computed.
func (f *feed) Latest() *monitorDomain.Snapshot {
	last := f.latest.Load()
	if last == nil {
		return nil
	}
	snapshot := last.Clone()
	now := f.now()
	if now.Sub(last.TakenAt) > 2*f.interval {
		snapshot.Stale = true
	}
	if since := f.inFlightSince.Load(); since != 0 && now.Sub(time.Unix(0, since)) > f.interval {
		snapshot.Stale = true
	}
	return snapshot
}

// Run samples immediately and then on every tick.
func (f *feed) Run(ctx context.Context, publish func(*monitorDomain.Snapshot)) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.Info("metrics feed started", slog.Duration("interval", f.interval))
	for {
		publish(f.Sample(ctx))

		select {
		case <-ctx.Done():
			f.logger.Info("metrics feed stopped")
			return nil
		case <-ticker.C:
		}
	}
}
