package iostat

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/pentactl/internal/errors"
	"codeberg.org/mutker/pentactl/internal/logger"
	"github.com/shirou/gopsutil/v3/disk"
)

const sysBlockPath = "/sys/block"

// Disk stat columns per Documentation/admin-guide/iostats.rst: field 3
// is sectors read, field 7 sectors written.
const (
	statSectorsReadCol    = 2
	statSectorsWrittenCol = 6
	statMinColumns        = 7
)

// DiskSampler reads per-disk sector counters and converts them to byte
// rates. The kernel reports sectors, so each disk's hardware sector
// size is resolved once and memoized for the process lifetime.
type DiskSampler struct {
	calc        *Calculator
	basePath    string
	disks       []string
	sectorSizes map[string]uint64
	unreadable  map[string]bool
}

// NewDiskSampler monitors the given disks (device names such as "sda",
// partition numbers already stripped). basePath overrides /sys/block in
// tests.
func NewDiskSampler(disks []string, basePath string) *DiskSampler {
	if basePath == "" {
		basePath = sysBlockPath
	}

	deduped := make([]string, 0, len(disks))
	seen := make(map[string]bool)
	for _, d := range disks {
		d = StripPartition(d)
		if d != "" && !seen[d] {
			seen[d] = true
			deduped = append(deduped, d)
		}
	}

	return &DiskSampler{
		calc:        NewCalculator(),
		basePath:    basePath,
		disks:       deduped,
		sectorSizes: make(map[string]uint64),
		unreadable:  make(map[string]bool),
	}
}

// Refresh samples every monitored disk once. Unreadable disks are
// skipped and stay at their previous rate.
func (s *DiskSampler) Refresh(now time.Time) {
	for _, disk := range s.disks {
		if err := s.sample(disk, now); err != nil {
			if !s.unreadable[disk] {
				s.unreadable[disk] = true
				logger.Warn().Err(err).Str("disk", disk).Msg("disk io counters unreadable")
			}
			continue
		}
		s.unreadable[disk] = false
	}
}

// Rate returns the latest rate for a disk; ok is false when the disk
// has never produced a readable sample.
func (s *DiskSampler) Rate(disk string) (Rate, bool) {
	return s.calc.Rate(StripPartition(disk))
}

func (s *DiskSampler) sample(disk string, now time.Time) error {
	sectorSize, err := s.sectorSize(disk)
	if err != nil {
		return err
	}

	errFactory := errors.New()
	raw, err := os.ReadFile(fmt.Sprintf("%s/%s/stat", s.basePath, disk))
	if err != nil {
		return errFactory.Wrap(ErrDiskStatUnreadable, err)
	}

	cols := strings.Fields(string(raw))
	if len(cols) < statMinColumns {
		return errFactory.WithData(ErrDiskStatUnreadable, string(raw))
	}

	sectorsRead, err := strconv.ParseUint(cols[statSectorsReadCol], 10, 64)
	if err != nil {
		return errFactory.Wrap(ErrDiskStatUnreadable, err)
	}
	sectorsWritten, err := strconv.ParseUint(cols[statSectorsWrittenCol], 10, 64)
	if err != nil {
		return errFactory.Wrap(ErrDiskStatUnreadable, err)
	}

	s.calc.Update(disk, sectorsRead*sectorSize, sectorsWritten*sectorSize, now)

	return nil
}

// sectorSize resolves and memoizes the disk's hardware sector size.
func (s *DiskSampler) sectorSize(disk string) (uint64, error) {
	if size, ok := s.sectorSizes[disk]; ok {
		return size, nil
	}

	errFactory := errors.New()
	raw, err := os.ReadFile(fmt.Sprintf("%s/%s/queue/hw_sector_size", s.basePath, disk))
	if err != nil {
		return 0, errFactory.Wrap(ErrSectorSizeUnreadable, err)
	}

	size, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil || size == 0 {
		return 0, errFactory.WithData(ErrSectorSizeUnreadable, strings.TrimSpace(string(raw)))
	}

	s.sectorSizes[disk] = size

	return size, nil
}

// ResolveDisks maps the configured mount points to their backing block
// device names ("sda"), sorted and deduplicated. Unmounted entries are
// skipped.
func ResolveDisks(mountPoints []string) []string {
	if len(mountPoints) == 0 {
		return nil
	}

	partitions, err := disk.Partitions(false)
	if err != nil {
		logger.Warn().Err(err).Msg("partition list unavailable")
		return nil
	}

	byMount := make(map[string]string, len(partitions))
	for _, p := range partitions {
		byMount[p.Mountpoint] = p.Device
	}

	seen := make(map[string]bool)
	var disks []string
	for _, mount := range mountPoints {
		device, ok := byMount[mount]
		if !ok {
			continue
		}
		name := StripPartition(strings.TrimPrefix(device, "/dev/"))
		if name != "" && !seen[name] {
			seen[name] = true
			disks = append(disks, name)
		}
	}
	sort.Strings(disks)

	return disks
}

// StripPartition removes the trailing partition digits from an sd-style
// device name ("sda1" becomes "sda").
func StripPartition(disk string) string {
	if !strings.Contains(disk, "sd") {
		return disk
	}

	return strings.TrimRight(disk, "0123456789")
}
