package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// System is the operating system side of the telemetry.
type System interface {
	Hostname(ctx context.Context) (string, error)
	Addresses(ctx context.Context) ([]string, error)
	// CPUPercent blocks for window and returns the average load over it.
	CPUPercent(ctx context.Context, window time.Duration) (float64, error)
	CPUFrequency(ctx context.Context) (int, error)
	Memory(ctx context.Context) (Usage, error)
	Swap(ctx context.Context) (Usage, error)
	Disk(ctx context.Context, path string) (Usage, error)
	Uptime(ctx context.Context) (time.Duration, error)
}

// HostSystem implements System with gopsutil.
type HostSystem struct {
	// FreqPath is the cpufreq file holding the current frequency in kHz.
	FreqPath string
}

// NewHostSystem returns a HostSystem reading cpu0's scaling frequency.
func NewHostSystem() *HostSystem {
	return &HostSystem{FreqPath: "/sys/devices/system/cpu/cpu0/cpufreq/scaling_cur_freq"}
}

// Hostname returns the host name.
func (h *HostSystem) Hostname(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	return info.Hostname, nil
}

// Addresses returns the host's IP addresses, IPv4 and IPv6 in interface
// order.
func (h *HostSystem) Addresses(ctx context.Context) ([]string, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return addresses(ifaces), nil
}

// addresses lists the usable addresses of the interfaces in order, like
// `hostname -I`: loopback interfaces, link-local and unspecified addresses
// are skipped. It never returns nil.
func addresses(ifaces psnet.InterfaceStatList) []string {
	out := []string{}
	for _, iface := range ifaces {
		if slices.Contains(iface.Flags, "loopback") {
			continue
		}
		for _, a := range iface.Addrs {
			addr, err := parseAddr(a.Addr)
			if err != nil {
				continue
			}
			if addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
				continue
			}
			out = append(out, addr.String())
		}
	}
	return out
}

func parseAddr(s string) (netip.Addr, error) {
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Addr(), nil
	}
	return netip.ParseAddr(s)
}

// CPUPercent returns the CPU utilisation over window, in percent.
func (h *HostSystem) CPUPercent(ctx context.Context, window time.Duration) (float64, error) {
	p, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, errors.New("metrics: no cpu load sample")
	}
	return Round(p[0], 1), nil
}

// CPUFrequency returns the current frequency of cpu0. gopsutil only
// reports the maximum frequency on Linux, so the cpufreq file is read
// first and the gopsutil value is the fallback.
func (h *HostSystem) CPUFrequency(ctx context.Context) (int, error) {
	if h.FreqPath != "" {
		if b, err := os.ReadFile(h.FreqPath); err == nil {
			return parseKHz(string(b))
		}
	}
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return 0, err
	}
	if len(infos) == 0 {
		return 0, errors.New("metrics: no cpu info")
	}
	return int(infos[0].Mhz), nil
}

// parseKHz converts a cpufreq kHz value to MHz.
func parseKHz(s string) (int, error) {
	khz, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("metrics: bad cpufreq value %q: %w", s, err)
	}
	return khz / 1000, nil
}

// Memory returns the virtual memory usage.
func (h *HostSystem) Memory(ctx context.Context) (Usage, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Usage{}, err
	}
	return memoryUsage(vm.Total, vm.Available), nil
}

// memoryUsage counts everything not available as used.
func memoryUsage(total, available uint64) Usage {
	used := uint64(0)
	if total > available {
		used = total - available
	}
	return Usage{Used: used, Total: total, Percent: Round(Percent(used, total), 1)}
}

// Swap returns the swap usage. Percent is 0 without swap.
func (h *HostSystem) Swap(ctx context.Context) (Usage, error) {
	sw, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Used: sw.Used, Total: sw.Total, Percent: Percent(sw.Used, sw.Total)}, nil
}

// Disk returns the usage of the filesystem mounted at path.
func (h *HostSystem) Disk(ctx context.Context, path string) (Usage, error) {
	du, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Used: du.Used, Total: du.Total, Percent: Round(du.UsedPercent, 2)}, nil
}

// Uptime returns the time since boot.
func (h *HostSystem) Uptime(ctx context.Context) (time.Duration, error) {
	up, err := host.UptimeWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(up) * time.Second, nil
}
