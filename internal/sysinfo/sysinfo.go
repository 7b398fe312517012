// Package sysinfo produces the one-line system fact strings shown on
// the status display pages. Rendering is the display's concern; this
// package only gathers and formats.
package sysinfo

import (
	"fmt"
	"strings"
	"time"

	"codeberg.org/mutker/pentactl/internal/logger"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

const (
	mbPerByte = 1.0 / (1024 * 1024)
	gbPerByte = 1.0 / (1024 * 1024 * 1024)

	diskUsageCacheTTL = 30 * time.Second
)

// Uptime returns "Up: 3d 4h 12m".
func Uptime() string {
	seconds, err := host.Uptime()
	if err != nil {
		logger.Warn().Err(err).Msg("uptime unavailable")
		return "Up: ?"
	}

	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	var b strings.Builder
	b.WriteString("Up:")
	if days > 0 {
		fmt.Fprintf(&b, " %dd", days)
	}
	if hours > 0 || days > 0 {
		fmt.Fprintf(&b, " %dh", hours)
	}
	fmt.Fprintf(&b, " %dm", minutes)

	return b.String()
}

// IPAddress returns the primary non-loopback IPv4 address.
func IPAddress() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		logger.Warn().Err(err).Msg("interface list unavailable")
		return "IP ?"
	}

	for _, iface := range interfaces {
		up := false
		for _, flag := range iface.Flags {
			if flag == "up" {
				up = true
				break
			}
		}
		if !up || iface.Name == "lo" {
			continue
		}
		for _, addr := range iface.Addrs {
			ip := strings.SplitN(addr.Addr, "/", 2)[0]
			if !strings.Contains(ip, ":") {
				return "IP " + ip
			}
		}
	}

	return "IP ?"
}

// CPULoad returns the one-minute load average.
func CPULoad() string {
	avg, err := load.Avg()
	if err != nil {
		logger.Warn().Err(err).Msg("load average unavailable")
		return "CPU Load: ?"
	}

	return fmt.Sprintf("CPU Load: %.2f", avg.Load1)
}

// Memory returns "Mem: used/total MB".
func Memory() string {
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Warn().Err(err).Msg("memory stats unavailable")
		return "Mem: ?"
	}

	return fmt.Sprintf("Mem: %.0f/%.0f MB", float64(vm.Used)*mbPerByte, float64(vm.Total)*mbPerByte)
}

// CPUTemp formats a temperature for display, converting to Fahrenheit
// when configured. The fan curve always works in Celsius; conversion is
// display-only.
func CPUTemp(celsius float64, fahrenheit bool) string {
	if fahrenheit {
		return fmt.Sprintf("CPU Temp: %.0f°F", celsius*1.8+32)
	}

	return fmt.Sprintf("CPU Temp: %.0f°C", celsius)
}

// usageEntry is a cached formatted disk usage line.
type usageEntry struct {
	text string
	at   time.Time
}

// DiskUsage formats per-mount-point usage, caching results because df
// style statfs calls on spun-down disks are slow. The cache is an
// explicit struct owned by the caller, refreshed at most every 30
// seconds.
type DiskUsage struct {
	mounts []string
	cache  map[string]usageEntry
}

func NewDiskUsage(mounts []string) *DiskUsage {
	return &DiskUsage{
		mounts: append([]string{"/"}, mounts...),
		cache:  make(map[string]usageEntry),
	}
}

// Lines returns one formatted usage line per monitored mount point.
func (u *DiskUsage) Lines(now time.Time) []string {
	lines := make([]string, 0, len(u.mounts))
	for _, mount := range u.mounts {
		entry, ok := u.cache[mount]
		if !ok || now.Sub(entry.at) > diskUsageCacheTTL {
			entry = usageEntry{text: formatUsage(mount), at: now}
			u.cache[mount] = entry
		}
		lines = append(lines, entry.text)
	}

	return lines
}

func formatUsage(mount string) string {
	usage, err := disk.Usage(mount)
	if err != nil {
		logger.Warn().Err(err).Str("mount", mount).Msg("disk usage unavailable")
		return fmt.Sprintf("Disk %s: ?", mount)
	}

	return fmt.Sprintf("Disk %s: %.0f/%.0f GB %.0f%%",
		mount, float64(usage.Used)*gbPerByte, float64(usage.Total)*gbPerByte, usage.UsedPercent)
}
