// Package disktemp polls drive temperatures over SMART and maintains
// the shared disk-temperature average consumed by the fan controller
// and the status display.
package disktemp

import (
	"context"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/pentactl/internal/errors"
	"codeberg.org/mutker/pentactl/internal/logger"
	"codeberg.org/mutker/pentactl/internal/state"
)

const (
	sysBlockPath = "/sys/block"

	// SMART attribute 194 is Temperature_Celsius; its tenth column is
	// the raw value.
	smartTempAttribute = "194"
	smartRawValueCol   = 9

	queryTimeout = 10 * time.Second
)

const (
	ErrQueryFailed = errors.ErrorCode("disktemp_query_failed")
	ErrNoReading   = errors.ErrorCode("disktemp_no_reading")
)

// Reading is one disk's temperature, or an unreadable sentinel when the
// drive does not report one.
type Reading struct {
	Disk       string
	Celsius    float64
	Unreadable bool
}

// Query resolves one disk's temperature.
type Query func(ctx context.Context, disk string) (float64, error)

// Enumerate lists the disks to poll.
type Enumerate func() []string

// Poller periodically queries every sd* drive and publishes the average
// of the readable temperatures, plus its completion timestamp, into the
// state store. Unreadable drives are excluded from the average rather
// than dragging it toward zero.
type Poller struct {
	store     *state.Store
	interval  time.Duration
	query     Query
	enumerate Enumerate
}

func NewPoller(store *state.Store, interval time.Duration, query Query, enumerate Enumerate) *Poller {
	if query == nil {
		query = SmartctlQuery
	}
	if enumerate == nil {
		enumerate = ListBlockDisks
	}

	return &Poller{
		store:     store,
		interval:  interval,
		query:     query,
		enumerate: enumerate,
	}
}

// Run polls immediately and then at the configured interval until the
// context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Poll(ctx, time.Now())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p.Poll(ctx, now)
		}
	}
}

// Poll queries every disk once, stores the aggregate and returns the
// individual readings for display use.
func (p *Poller) Poll(ctx context.Context, now time.Time) []Reading {
	disks := p.enumerate()

	readings := make([]Reading, 0, len(disks))
	var sum float64
	var readable int
	for _, disk := range disks {
		temp, err := p.query(ctx, disk)
		if err != nil {
			logger.Debug().Err(err).Str("disk", disk).Msg("disk temperature unreadable")
			readings = append(readings, Reading{Disk: disk, Unreadable: true})
			continue
		}
		readings = append(readings, Reading{Disk: disk, Celsius: temp})
		sum += temp
		readable++
	}

	average := 0.0
	if readable > 0 {
		average = sum / float64(readable)
	}

	p.store.SetDiskTempAverage(average)
	p.store.SetLastDiskTempPoll(now)

	logger.Debug().
		Float64("average", average).
		Int("disks", len(disks)).
		Int("readable", readable).
		Msg("disk temperatures polled")

	return readings
}

// Average computes the mean of the readable entries; ok is false when
// none are readable.
func Average(readings []Reading) (float64, bool) {
	var sum float64
	var n int
	for _, r := range readings {
		if r.Unreadable {
			continue
		}
		sum += r.Celsius
		n++
	}
	if n == 0 {
		return 0, false
	}

	return sum / float64(n), true
}

// SmartctlQuery reads SMART attribute 194 via the smartctl tool.
func SmartctlQuery(ctx context.Context, disk string) (float64, error) {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "smartctl", "-A", "/dev/"+disk).Output()
	if err != nil {
		return 0, errFactory.Wrap(ErrQueryFailed, err)
	}

	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) <= smartRawValueCol || fields[0] != smartTempAttribute {
			continue
		}

		temp, err := strconv.ParseFloat(fields[smartRawValueCol], 64)
		if err != nil {
			return 0, errFactory.Wrap(ErrNoReading, err)
		}

		return temp, nil
	}

	return 0, errFactory.WithData(ErrNoReading, disk)
}

// ListBlockDisks enumerates sd* block devices, sorted by name.
func ListBlockDisks() []string {
	entries, err := os.ReadDir(sysBlockPath)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to enumerate block devices")
		return nil
	}

	var disks []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "sd") {
			disks = append(disks, e.Name())
		}
	}
	sort.Strings(disks)

	return disks
}
