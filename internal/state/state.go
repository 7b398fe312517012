// Package state holds the runtime state shared by the daemon's loops.
//
// Each field is independently atomic. Readers get bounded staleness (no
// more than one fan controller tick), not multi-field consistency, and
// must not assume two reads describe the same instant.
package state

import (
	"math"
	"sync/atomic"
	"time"
)

type Store struct {
	fanEnabled       atomic.Bool
	displayIndex     atomic.Int32
	pageCount        int32
	lastDiskTempPoll atomic.Int64  // unix nanoseconds
	diskTempAverage  atomic.Uint64 // float64 bits
}

// New creates a store with the fan enabled and the display on page zero.
// pageCount fixes the modulus for display index wrapping and must be at
// least 1.
func New(pageCount int) *Store {
	if pageCount < 1 {
		pageCount = 1
	}

	s := &Store{pageCount: int32(pageCount)}
	s.fanEnabled.Store(true)

	return s
}

func (s *Store) FanEnabled() bool {
	return s.fanEnabled.Load()
}

func (s *Store) SetFanEnabled(enabled bool) {
	s.fanEnabled.Store(enabled)
}

// ToggleFanEnabled atomically flips the fan-enabled flag and returns the
// new value. This is the only multi-writer path in the store; the
// compare-and-swap loop keeps concurrent toggles from losing flips.
func (s *Store) ToggleFanEnabled() bool {
	for {
		old := s.fanEnabled.Load()
		if s.fanEnabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

func (s *Store) DisplayIndex() int {
	return int(s.displayIndex.Load())
}

// NextDisplayIndex advances the display page, wrapping modulo the page
// count, and returns the new index.
func (s *Store) NextDisplayIndex() int {
	for {
		old := s.displayIndex.Load()
		next := (old + 1) % s.pageCount
		if s.displayIndex.CompareAndSwap(old, next) {
			return int(next)
		}
	}
}

func (s *Store) PageCount() int {
	return int(s.pageCount)
}

func (s *Store) LastDiskTempPoll() time.Time {
	return time.Unix(0, s.lastDiskTempPoll.Load())
}

func (s *Store) SetLastDiskTempPoll(t time.Time) {
	s.lastDiskTempPoll.Store(t.UnixNano())
}

func (s *Store) DiskTempAverage() float64 {
	return math.Float64frombits(s.diskTempAverage.Load())
}

func (s *Store) SetDiskTempAverage(avg float64) {
	s.diskTempAverage.Store(math.Float64bits(avg))
}
