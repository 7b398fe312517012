package fan

import (
	"context"
	"time"

	"codeberg.org/mutker/pentactl/internal/hw"
	"codeberg.org/mutker/pentactl/internal/logger"
	"codeberg.org/mutker/pentactl/internal/state"
)

const (
	// Actuation cadence. The duty cycle itself is recomputed at the
	// slower refresh interval to damp sensor jitter.
	tickInterval = 100 * time.Millisecond
)

// Controller is the fan control loop. Each tick it picks a duty cycle
// (recomputing at most once per refresh interval) and writes the
// actuator only when the value changed.
type Controller struct {
	curve     Curve
	fan       hw.Fan
	cpu       hw.TempSensor
	store     *state.Store
	refresh   time.Duration
	tempDisks bool

	lastComputed time.Time
	lastDuty     float64
	written      float64
	hasWritten   bool

	// record, when set, is called after every duty recomputation. It
	// runs on the controller goroutine and must not block for long.
	record func(temp, duty float64)
}

func NewController(curve Curve, fan hw.Fan, cpu hw.TempSensor, store *state.Store, refresh time.Duration, tempDisks bool) *Controller {
	if refresh <= 0 {
		refresh = 5 * time.Second
	}

	return &Controller{
		curve:     curve,
		fan:       fan,
		cpu:       cpu,
		store:     store,
		refresh:   refresh,
		tempDisks: tempDisks,
		lastDuty:  IdleDuty,
	}
}

// Run drives the actuation loop until the context is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(time.Now())
		}
	}
}

func (c *Controller) tick(now time.Time) {
	duty := c.targetDuty(now)

	if c.hasWritten && duty == c.written {
		return
	}

	if err := c.fan.SetDutyCycle(duty); err != nil {
		// Best effort: log and try again next tick
		logger.Error().Err(err).Msg("failed to write fan duty cycle")
		return
	}

	c.written = duty
	c.hasWritten = true
	logger.Debug().Float64("duty", duty).Msg("fan duty cycle updated")
}

// targetDuty returns the duty for this tick. A disabled fan overrides
// the curve entirely; otherwise the last computed duty is reused until
// the refresh interval has elapsed.
func (c *Controller) targetDuty(now time.Time) float64 {
	if !c.store.FanEnabled() {
		return DisabledDuty
	}

	if c.lastComputed.IsZero() || now.Sub(c.lastComputed) >= c.refresh {
		temp := c.readTemp()
		c.lastComputed = now
		c.lastDuty = c.curve.Duty(temp, now)
		if c.record != nil {
			c.record(temp, c.lastDuty)
		}
	}

	return c.lastDuty
}

// OnRecompute registers a callback observing each recomputed duty.
// Must be called before Run.
func (c *Controller) OnRecompute(record func(temp, duty float64)) {
	c.record = record
}

// readTemp reads the CPU sensor, folding in the disk temperature
// average when configured. A sensor failure degrades to the disk
// average alone rather than aborting the tick.
func (c *Controller) readTemp() float64 {
	cpu, err := c.cpu.Read()
	if err != nil {
		logger.Warn().Err(err).Msg("cpu temperature unreadable")
		cpu = 0
	}

	return EffectiveTemp(cpu, c.store.DiskTempAverage(), c.tempDisks)
}
