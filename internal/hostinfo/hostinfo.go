// Package hostinfo describes the machine a benchmark run executes on.
package hostinfo

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info is a best-effort description of the host. Fields the platform does
// not expose are left empty.
type Info struct {
	Hostname    string `json:"hostname"`
	OS          string `json:"os"`
	Platform    string `json:"platform"`
	Kernel      string `json:"kernel"`
	CPUModel    string `json:"cpu_model"`
	LogicalCPUs int    `json:"logical_cpus"`
	MemoryTotal uint64 `json:"memory_total"`
}

// Collect gathers host, CPU and memory details. It returns whatever could
// be read together with the first error encountered.
func Collect(ctx context.Context) (Info, error) {
	var (
		info     Info
		firstErr error
	)
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	h, err := host.InfoWithContext(ctx)
	keep(err)
	if h != nil {
		info.Hostname = h.Hostname
		info.OS = h.OS
		info.Platform = strings.TrimSpace(h.Platform + " " + h.PlatformVersion)
		info.Kernel = strings.TrimSpace(h.KernelVersion + " " + h.KernelArch)
	}

	cpus, err := cpu.InfoWithContext(ctx)
	keep(err)
	if len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	count, err := cpu.CountsWithContext(ctx, true)
	keep(err)
	info.LogicalCPUs = count

	vm, err := mem.VirtualMemoryWithContext(ctx)
	keep(err)
	if vm != nil {
		info.MemoryTotal = vm.Total
	}

	return info, firstErr
}

// String renders the info as a single line, e.g.
// "bench-01 (linux ubuntu 24.04, 16 CPUs AMD EPYC, 64 GB RAM)".
func (i Info) String() string {
	var parts []string
	if platform := strings.TrimSpace(i.OS + " " + i.Platform); platform != "" {
		parts = append(parts, platform)
	}
	if i.LogicalCPUs > 0 {
		cpus := fmt.Sprintf("%d CPUs", i.LogicalCPUs)
		if i.CPUModel != "" {
			cpus += " " + i.CPUModel
		}
		parts = append(parts, cpus)
	}
	if i.MemoryTotal > 0 {
		parts = append(parts, humanize.Bytes(i.MemoryTotal)+" RAM")
	}

	name := i.Hostname
	if name == "" {
		name = "unknown host"
	}
	if len(parts) == 0 {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, strings.Join(parts, ", "))
}
