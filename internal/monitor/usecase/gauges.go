package usecase

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// RegisterGauges exports the latest sample as observable gauges. Fields that are
// unavailable or stale are not observed.
func RegisterGauges(meterProvider metric.MeterProvider, namespace string, feed MetricsFeed) error {
	meter := meterProvider.Meter(namespace)

	load1, err := meter.Float64ObservableGauge(
		fmt.Sprintf("%s_host_load1", namespace),
		metric.WithDescription("One minute load average of the base-station host"),
	)
	if err != nil {
		return fmt.Errorf("failed to create load gauge: %w", err)
	}
	memory, err := meter.Float64ObservableGauge(
		fmt.Sprintf("%s_host_memory_used_percent", namespace),
		metric.WithDescription("Used physical memory of the base-station host"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return fmt.Errorf("failed to create memory gauge: %w", err)
	}
	sessions, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_active_sessions", namespace),
		metric.WithDescription("Active sessions reported by the managed service"),
	)
	if err != nil {
		return fmt.Errorf("failed to create sessions gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		snapshot := feed.Latest()
		if snapshot == nil || snapshot.Stale {
			return nil
		}
		if snapshot.CPU != nil {
			o.ObserveFloat64(load1, snapshot.CPU.Load1)
		}
		if snapshot.Memory != nil {
			o.ObserveFloat64(memory, snapshot.Memory.UsedPercent)
		}
		if snapshot.Sessions != nil {
			o.ObserveInt64(sessions, int64(*snapshot.Sessions))
		}
		return nil
	}, load1, memory, sessions)
	if err != nil {
		return fmt.Errorf("failed to register gauge callback: %w", err)
	}
	return nil
}
