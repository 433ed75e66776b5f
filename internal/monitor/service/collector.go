// Package service provides the metrics collectors backed by the host OS.
package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"

	monitorDomain "github.com/allisson/btsguard/internal/monitor/domain"
	stationDomain "github.com/allisson/btsguard/internal/station/domain"
)

// Collector gathers each group of readings independently.
type Collector interface {
	CPULoad(ctx context.Context) (*monitorDomain.CPULoad, error)
	Memory(ctx context.Context) (*monitorDomain.Memory, error)
	Interfaces(ctx context.Context) ([]monitorDomain.Interface, error)
	ActiveSessions(ctx context.Context) (int, error)
}

// StatusSource reports the managed service status, including active sessions.
type StatusSource interface {
	Status(ctx context.Context) (*stationDomain.Status, error)
}

type systemCollector struct {
	status StatusSource
}

// NewSystemCollector creates a collector reading the host through gopsutil and
// active sessions from the managed service.
func NewSystemCollector(status StatusSource) Collector {
	return &systemCollector{status: status}
}

// CPULoad returns load averages and the CPU percentage since the last call.
func (s *systemCollector) CPULoad(ctx context.Context) (*monitorDomain.CPULoad, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("load average: %w", err)
	}
	reading := &monitorDomain.CPULoad{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}

	percent, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percent) > 0 {
		reading.Percent = percent[0]
	}
	return reading, nil
}

// Memory returns virtual memory usage.
func (s *systemCollector) Memory(ctx context.Context) (*monitorDomain.Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}
	return &monitorDomain.Memory{Total: vm.Total, Used: vm.Used, UsedPercent: vm.UsedPercent}, nil
}

// Interfaces lists non-loopback interfaces with their addresses.
func (s *systemCollector) Interfaces(ctx context.Context) ([]monitorDomain.Interface, error) {
	stats, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("interfaces: %w", err)
	}

	interfaces := make([]monitorDomain.Interface, 0, len(stats))
	for _, stat := range stats {
		if slices.Contains(stat.Flags, "loopback") {
			continue
		}
		addresses := make([]string, 0, len(stat.Addrs))
		for _, addr := range stat.Addrs {
			addresses = append(addresses, addr.Addr)
		}
		interfaces = append(interfaces, monitorDomain.Interface{
			Name:      stat.Name,
			Up:        slices.Contains(stat.Flags, "up"),
			Addresses: addresses,
		})
	}
	return interfaces, nil
}

// ActiveSessions asks the managed service for its session count.
func (s *systemCollector) ActiveSessions(ctx context.Context) (int, error) {
	status, err := s.status.Status(ctx)
	if err != nil {
		return 0, err
	}
	if !status.Running {
		return 0, fmt.Errorf("service not running: %s", status.Detail)
	}
	return status.ActiveSessions, nil
}
