// Package diagnostics takes a point-in-time snapshot of host resource
// usage. It gives the gopsutil dependency — declared but never actually
// wired in the teacher repository's own metrics package — a real,
// exercised home: the update loop logs a snapshot alongside every poll
// cycle so operators can correlate a worker replacement with host load.
package diagnostics

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot is a point-in-time reading of host resource usage.
type Snapshot struct {
	CPUPercent  float64
	MemPercent  float64
	DiskPercent float64
}

// Collect samples current CPU, memory, and disk (root filesystem)
// utilization. CPU sampling does not block: it uses a zero interval, so
// the percentage is measured against gopsutil's previous CPU sample.
func Collect(ctx context.Context) (Snapshot, error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Snapshot{}, fmt.Errorf("diagnostics: cpu sample failed: %w", err)
	}
	var cpuPct float64
	if len(cpuPercents) > 0 {
		cpuPct = cpuPercents[0]
	}

	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("diagnostics: mem sample failed: %w", err)
	}

	diskUsage, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return Snapshot{}, fmt.Errorf("diagnostics: disk sample failed: %w", err)
	}

	return Snapshot{
		CPUPercent:  cpuPct,
		MemPercent:  vmem.UsedPercent,
		DiskPercent: diskUsage.UsedPercent,
	}, nil
}
