// Package button turns the raw top-board button sample stream into
// discrete gestures. The line is pulled high and reads low while held,
// so a click shows up in the sample window as highs, a run of lows, and
// a settling run of highs.
package button

import (
	"context"
	"math"
	"time"

	"codeberg.org/mutker/pentactl/internal/hw"
	"codeberg.org/mutker/pentactl/internal/logger"
)

// Gesture is a classified user action.
type Gesture int

const (
	Click Gesture = iota
	DoubleClick
	LongPress
)

func (g Gesture) String() string {
	switch g {
	case Click:
		return "click"
	case DoubleClick:
		return "twice"
	case LongPress:
		return "press"
	default:
		return "unknown"
	}
}

// SampleInterval is the fixed button sampling cadence.
const SampleInterval = 100 * time.Millisecond

// minSettleSamples is the settling run required after the second
// release of a double click.
const minSettleSamples = 3

// Priority is the fixed evaluation order when several patterns match
// the same window. A double click necessarily contains a click, so the
// order is a deliberate tie-break rule, not an implementation accident.
var Priority = [3]Gesture{Click, DoubleClick, LongPress}

// run is one entry of the run-length encoded sample window.
type run struct {
	level bool
	count int
}

// Recognizer classifies gestures from a bounded sliding window of
// levels. The window is never reset on a match: old samples age out, and
// a latch holds further emissions until the window stops matching, so
// the same underlying press cannot retrigger.
type Recognizer struct {
	window  []bool
	size    int  // samples in a long press
	wait    int  // settling samples confirming a single click
	latched bool // a match was emitted and the window still matches
}

// NewRecognizer sizes the window from the configured timing thresholds
// in seconds: time.press sets the long-press run, time.twice the click
// settle period, and the window covers whichever pattern is longest.
func NewRecognizer(twiceSec, pressSec float64) *Recognizer {
	// Rounded, not truncated: 0.7/0.1 is 6.999... in float arithmetic
	// and must still resolve to 7 samples.
	size := int(math.Round(pressSec / SampleInterval.Seconds()))
	wait := int(math.Round(twiceSec / SampleInterval.Seconds()))
	if size < 1 {
		size = 1
	}
	if wait < 1 {
		wait = 1
	}

	// One extra slot past the longest pattern so a full run plus the
	// sample that ends it fit together. The click pattern spans wait+2
	// samples and dominates when time.twice exceeds time.press.
	capacity := size + 1
	if c := wait + 3; c > capacity {
		capacity = c
	}

	return &Recognizer{
		window: make([]bool, 0, capacity),
		size:   size,
		wait:   wait,
	}
}

// Feed appends one sample and evaluates the window. It returns the
// first matching gesture in Priority order, or false when nothing
// matches or the previous match has not yet aged out.
func (r *Recognizer) Feed(level bool) (Gesture, bool) {
	if len(r.window) == cap(r.window) {
		copy(r.window, r.window[1:])
		r.window = r.window[:len(r.window)-1]
	}
	r.window = append(r.window, level)

	runs := encodeRuns(r.window)
	for _, g := range Priority {
		if r.matches(g, runs) {
			if r.latched {
				return 0, false
			}
			r.latched = true

			return g, true
		}
	}
	r.latched = false

	return 0, false
}

// matches checks one gesture pattern against the trailing runs of the
// window, so a match fires the moment the pattern completes on the
// newest sample.
func (r *Recognizer) matches(g Gesture, runs []run) bool {
	switch g {
	case Click:
		// high+ low+ high{wait,}
		return matchShape(runs, []run{
			{level: true, count: 1},
			{level: false, count: 1},
			{level: true, count: r.wait},
		})
	case DoubleClick:
		// high+ low+ high+ low+ high{3,}
		return matchShape(runs, []run{
			{level: true, count: 1},
			{level: false, count: 1},
			{level: true, count: 1},
			{level: false, count: 1},
			{level: true, count: minSettleSamples},
		})
	case LongPress:
		// high+ low{size,}
		return matchShape(runs, []run{
			{level: true, count: 1},
			{level: false, count: r.size},
		})
	default:
		return false
	}
}

// matchShape reports whether the window's trailing runs follow the
// given shape, where each shape entry demands a run of that level with
// at least count samples.
func matchShape(runs, shape []run) bool {
	if len(runs) < len(shape) {
		return false
	}

	tail := runs[len(runs)-len(shape):]
	for i, want := range shape {
		if tail[i].level != want.level || tail[i].count < want.count {
			return false
		}
	}

	return true
}

func encodeRuns(window []bool) []run {
	var runs []run
	for _, level := range window {
		if n := len(runs); n > 0 && runs[n-1].level == level {
			runs[n-1].count++
			continue
		}
		runs = append(runs, run{level: level, count: 1})
	}

	return runs
}

// Sampler reads the button at the fixed cadence and pushes recognized
// gestures onto a FIFO queue with a single consumer.
type Sampler struct {
	input      hw.Button
	recognizer *Recognizer
	out        chan Gesture
}

func NewSampler(input hw.Button, recognizer *Recognizer) *Sampler {
	return &Sampler{
		input:      input,
		recognizer: recognizer,
		out:        make(chan Gesture, 8),
	}
}

// Gestures returns the action queue. It is closed when Run returns.
func (s *Sampler) Gestures() <-chan Gesture {
	return s.out
}

// Run samples until the context is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	defer close(s.out)

	ticker := time.NewTicker(SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			level, err := s.input.Read()
			if err != nil {
				// Best effort: skip this sample and keep the cadence
				logger.Warn().Err(err).Msg("failed to read button level")
				continue
			}

			if gesture, ok := s.recognizer.Feed(level); ok {
				select {
				case s.out <- gesture:
					logger.Debug().Str("gesture", gesture.String()).Msg("gesture recognized")
				default:
					logger.Warn().Str("gesture", gesture.String()).Msg("action queue full, gesture dropped")
				}
			}
		}
	}
}
