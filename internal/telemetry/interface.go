package telemetry

import (
	"context"
	"time"
)

// Collector records control loop snapshots.
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Snapshot is one duty recomputation's worth of observable state.
type Snapshot struct {
	Timestamp       time.Time
	CPUTemp         float64
	DiskTempAverage float64
	Duty            float64
	FanEnabled      bool
	DisplayPage     int
}
