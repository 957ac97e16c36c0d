// Package system inspects the machine the director runs on: the ffmpeg
// encoders available, free disk space and memory usage.
package system

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

const mb = 1 << 20

// Hardware encoders in order of preference, libx264 is the fallback.
var h264Encoders = []string{"h264_videotoolbox", "h264_nvenc"}

const SoftwareEncoder = "libx264"

// BestH264Encoder asks ffmpeg for its encoder list and returns the preferred
// H.264 encoder it supports.
func BestH264Encoder(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return SoftwareEncoder
	}
	return pickEncoder(string(out))
}

func pickEncoder(encoders string) string {
	available := make(map[string]bool)
	for _, line := range strings.Split(encoders, "\n") {
		if fields := strings.Fields(line); len(fields) >= 2 {
			available[fields[1]] = true
		}
	}
	for _, name := range h264Encoders {
		if available[name] {
			return name
		}
	}
	return SoftwareEncoder
}

// FreeDiskMB returns the free space of the filesystem holding path.
func FreeDiskMB(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("disk usage of %s: %w", path, err)
	}
	return usage.Free / mb, nil
}

type MemoryStats struct {
	TotalMB     uint64  `json:"totalMB"`
	UsedMB      uint64  `json:"usedMB"`
	UsedPercent float64 `json:"usedPercent"`
	HeapMB      uint64  `json:"heapMB"`
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("system %d/%d MB (%.1f%%), heap %d MB", m.UsedMB, m.TotalMB, m.UsedPercent, m.HeapMB)
}

// Memory reports system memory usage plus the heap of this process.
func Memory(ctx context.Context) (MemoryStats, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats := MemoryStats{HeapMB: ms.HeapAlloc / mb}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("virtual memory: %w", err)
	}
	stats.TotalMB = vm.Total / mb
	stats.UsedMB = vm.Used / mb
	stats.UsedPercent = vm.UsedPercent
	return stats, nil
}
