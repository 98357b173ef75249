// Package sysinfo reports the resources available to the gear container.
package sysinfo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Report is a snapshot of the host resources
type Report struct {
	CPUCount int
	CPUMhz   float64

	MemoryTotal     uint64
	MemoryAvailable uint64
	SwapTotal       uint64
	SwapFree        uint64

	DiskPath  string
	DiskTotal uint64
	DiskFree  uint64
}

// Collect gathers a report for the disk holding path. Fields that cannot be
// read stay zero; their errors are joined into the returned error.
func Collect(ctx context.Context, path string) (Report, error) {
	report := Report{DiskPath: path}
	var errs []error

	if n, err := cpu.CountsWithContext(ctx, true); err != nil {
		errs = append(errs, err)
	} else {
		report.CPUCount = n
	}

	// Not every platform exposes a clock speed
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		report.CPUMhz = infos[0].Mhz
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		report.MemoryTotal = vm.Total
		report.MemoryAvailable = vm.Available
	}

	if swap, err := mem.SwapMemoryWithContext(ctx); err != nil {
		errs = append(errs, err)
	} else {
		report.SwapTotal = swap.Total
		report.SwapFree = swap.Free
	}

	if usage, err := disk.UsageWithContext(ctx, path); err != nil {
		errs = append(errs, err)
	} else {
		report.DiskTotal = usage.Total
		report.DiskFree = usage.Free
	}

	return report, errors.Join(errs...)
}

// Log collects a report for the root filesystem and logs it. Collection
// problems are only warned about.
func Log(ctx context.Context, logger *slog.Logger) {
	report, err := Collect(ctx, "/")
	if err != nil {
		logger.Warn("failed to read some system resources", "error", err)
	}

	logger.Info("system resources",
		"cpu_count", report.CPUCount,
		"cpu_mhz", report.CPUMhz,
		"memory_total", humanize.IBytes(report.MemoryTotal),
		"memory_available", humanize.IBytes(report.MemoryAvailable),
		"swap_total", humanize.IBytes(report.SwapTotal),
		"swap_free", humanize.IBytes(report.SwapFree),
		"disk_path", report.DiskPath,
		"disk_total", humanize.IBytes(report.DiskTotal),
		"disk_free", humanize.IBytes(report.DiskFree))
}
