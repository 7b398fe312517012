package iostat

import (
	"sort"
	"time"

	"codeberg.org/mutker/pentactl/internal/errors"
	"codeberg.org/mutker/pentactl/internal/logger"
	"github.com/shirou/gopsutil/v3/net"
)

// NetworkSampler feeds per-interface byte counters into a rate
// calculator.
type NetworkSampler struct {
	calc       *Calculator
	interfaces []string
}

func NewNetworkSampler(interfaces []string) *NetworkSampler {
	return &NetworkSampler{
		calc:       NewCalculator(),
		interfaces: interfaces,
	}
}

// ResolveInterfaces expands the configured interface list. The single
// entry "auto" selects every interface that is up, sorted by name.
func ResolveInterfaces(configured []string) []string {
	if len(configured) != 1 || configured[0] != "auto" {
		return configured
	}

	all, err := net.Interfaces()
	if err != nil {
		logger.Warn().Err(err).Msg("interface discovery failed")
		return nil
	}

	var up []string
	for _, iface := range all {
		for _, flag := range iface.Flags {
			if flag == "up" {
				up = append(up, iface.Name)
				break
			}
		}
	}
	sort.Strings(up)

	return up
}

// Refresh samples every monitored interface once.
func (s *NetworkSampler) Refresh(now time.Time) {
	if len(s.interfaces) == 0 {
		return
	}

	errFactory := errors.New()
	counters, err := net.IOCounters(true)
	if err != nil {
		logger.Warn().Err(errFactory.Wrap(ErrNetCountersFailed, err)).Msg("network io counters unreadable")
		return
	}

	byName := make(map[string]net.IOCountersStat, len(counters))
	for _, c := range counters {
		byName[c.Name] = c
	}

	for _, iface := range s.interfaces {
		c, ok := byName[iface]
		if !ok {
			continue
		}
		s.calc.Update(iface, c.BytesRecv, c.BytesSent, now)
	}
}

// Rate returns the latest rate for an interface.
func (s *NetworkSampler) Rate(iface string) (Rate, bool) {
	return s.calc.Rate(iface)
}
