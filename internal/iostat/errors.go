package iostat

import "codeberg.org/mutker/pentactl/internal/errors"

const (
	ErrSectorSizeUnreadable = errors.ErrorCode("iostat_sector_size_unreadable")
	ErrDiskStatUnreadable   = errors.ErrorCode("iostat_disk_stat_unreadable")
	ErrNetCountersFailed    = errors.ErrorCode("iostat_net_counters_failed")
)
