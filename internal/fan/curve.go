package fan

import (
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/pentactl/internal/config"
	"codeberg.org/mutker/pentactl/internal/errors"
)

// Duty cycles are PWM off-ratios: lower values drive the fan faster.
// 0.999 rather than 1.0 because the PWM extreme can stall the fan.
const (
	MaxDuty = 0.999
	MinDuty = 0.0

	// Duty written while the fan is switched off or the temperature sits
	// below the lowest threshold (10% speed; fully off can make some
	// fans spin up).
	IdleDuty = 0.9

	// Duty written while the fan is disabled via the button.
	DisabledDuty = MaxDuty

	minutesPerDay = 24 * 60
)

// Fan speed percentages for the four temperature levels.
var levelPercents = [4]float64{25, 50, 75, 100}

type level struct {
	threshold float64 // Celsius
	percent   float64 // fan speed
}

type quietWindow struct {
	start   int // minutes since midnight
	end     int
	maxDuty float64 // speed ceiling as a fraction of full speed
}

// Curve maps a temperature and a wall-clock time to a PWM duty cycle.
// It is pure: all inputs arrive as arguments, all configuration is fixed
// at construction.
type Curve struct {
	levels [4]level
	linear bool
	quiet  *quietWindow
}

// NewCurve builds a duty curve from the fan configuration. The
// thresholds have been validated as strictly increasing by the config
// package; a quiet window is active only when both boundary times parse
// and the noise ceiling is positive.
func NewCurve(cfg config.FanConfig) Curve {
	c := Curve{linear: cfg.Linear}

	thresholds := [4]float64{cfg.Lv0, cfg.Lv1, cfg.Lv2, cfg.Lv3}
	for i := range c.levels {
		c.levels[i] = level{threshold: thresholds[i], percent: levelPercents[i]}
	}

	start, startErr := parseTimeOfDay(cfg.SilentStart)
	end, endErr := parseTimeOfDay(cfg.SilentEnd)
	if startErr == nil && endErr == nil && cfg.SilentMaxLv > 0 {
		c.quiet = &quietWindow{start: start, end: end, maxDuty: cfg.SilentMaxLv}
	}

	return c
}

// Duty returns the off-ratio for the given temperature, always within
// [MinDuty, MaxDuty].
func (c Curve) Duty(temp float64, now time.Time) float64 {
	var percent float64
	if c.linear {
		percent = c.linearPercent(temp)
	} else {
		percent = c.steppedPercent(temp)
	}

	duty := clampDuty(1 - percent/100)

	if c.quiet != nil && c.quiet.contains(now) {
		// Floor the off-ratio so the fan stays below the configured
		// noise ceiling during quiet hours.
		floor := clampDuty(1 - c.quiet.maxDuty)
		if duty < floor {
			duty = floor
		}
	}

	return duty
}

// steppedPercent scans levels from hottest to coolest and returns the
// speed of the first threshold met.
func (c Curve) steppedPercent(temp float64) float64 {
	for i := len(c.levels) - 1; i >= 0; i-- {
		if temp >= c.levels[i].threshold {
			return c.levels[i].percent
		}
	}

	return (1 - IdleDuty) * 100
}

// linearPercent interpolates between the lv0 and lv3 anchor points and
// clamps outside them. A non-positive temperature span is a
// misconfiguration; the curve degrades to the lv0 speed instead of
// propagating an unbounded slope.
func (c Curve) linearPercent(temp float64) float64 {
	low, high := c.levels[0], c.levels[3]

	span := high.threshold - low.threshold
	if span <= 0 {
		return low.percent
	}

	slope := (high.percent - low.percent) / span
	percent := slope*(temp-low.threshold) + low.percent
	if percent < low.percent {
		return low.percent
	}
	if percent > high.percent {
		return high.percent
	}

	return percent
}

// EffectiveTemp combines the CPU reading with the disk average when the
// fan is configured to cool the disks too.
func EffectiveTemp(cpu, diskAverage float64, tempDisks bool) float64 {
	if tempDisks && diskAverage > cpu {
		return diskAverage
	}

	return cpu
}

func (w *quietWindow) contains(now time.Time) bool {
	m := now.Hour()*60 + now.Minute()

	if w.start <= w.end {
		return m >= w.start && m < w.end
	}

	// Window wraps midnight, e.g. 22:00 to 10:00
	return m >= w.start || m < w.end
}

// parseTimeOfDay parses "HH:MM" into minutes since midnight.
func parseTimeOfDay(s string) (int, error) {
	errFactory := errors.New()

	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, errFactory.WithData(errors.ErrInvalidArgument, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, errFactory.WithData(errors.ErrInvalidArgument, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, errFactory.WithData(errors.ErrInvalidArgument, s)
	}

	return hour*60 + minute, nil
}

func clampDuty(duty float64) float64 {
	if duty < MinDuty {
		return MinDuty
	}
	if duty > MaxDuty {
		return MaxDuty
	}

	return duty
}
