package button_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/pentactl/internal/button"
	"codeberg.org/mutker/pentactl/internal/hw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Defaults: twice 0.7s and press 1.8s give a settle requirement of 7
// samples and a long-press requirement of 18 samples.
const (
	testTwice = 0.7
	testPress = 1.8
	wait      = 7
	size      = 18
)

// feed pushes a level sequence and returns every emitted gesture.
func feed(r *button.Recognizer, levels []bool) []button.Gesture {
	var out []button.Gesture
	for _, level := range levels {
		if g, ok := r.Feed(level); ok {
			out = append(out, g)
		}
	}
	return out
}

func repeat(level bool, n int) []bool {
	s := make([]bool, n)
	for i := range s {
		s[i] = level
	}
	return s
}

func seq(parts ...[]bool) []bool {
	var s []bool
	for _, p := range parts {
		s = append(s, p...)
	}
	return s
}

func TestClick(t *testing.T) {
	r := button.NewRecognizer(testTwice, testPress)

	// high high high, low low, then a settling run of highs
	levels := seq(repeat(true, 3), repeat(false, 2), repeat(true, wait+1))
	gestures := feed(r, levels)

	require.Len(t, gestures, 1)
	assert.Equal(t, button.Click, gestures[0])
}

func TestDoubleClick(t *testing.T) {
	r := button.NewRecognizer(testTwice, testPress)

	levels := seq(repeat(true, 1), repeat(false, 1), repeat(true, 1), repeat(false, 1), repeat(true, 3))
	gestures := feed(r, levels)

	require.Len(t, gestures, 1)
	assert.Equal(t, button.DoubleClick, gestures[0])
}

func TestLongPress(t *testing.T) {
	r := button.NewRecognizer(testTwice, testPress)

	levels := seq(repeat(true, 2), repeat(false, size+1))
	gestures := feed(r, levels)

	require.Len(t, gestures, 1)
	assert.Equal(t, button.LongPress, gestures[0])
}

func TestNoRetriggerWhileWindowSlides(t *testing.T) {
	r := button.NewRecognizer(testTwice, testPress)

	// A click followed by a long stretch of idle: the press ages out of
	// the window without firing a second time
	levels := seq(repeat(true, 3), repeat(false, 2), repeat(true, 3*size))
	gestures := feed(r, levels)

	require.Len(t, gestures, 1)
	assert.Equal(t, button.Click, gestures[0])
}

func TestTwoSeparateClicks(t *testing.T) {
	r := button.NewRecognizer(testTwice, testPress)

	click := seq(repeat(true, 3), repeat(false, 2), repeat(true, wait+2))
	gestures := feed(r, seq(click, click))

	require.Len(t, gestures, 2)
	assert.Equal(t, button.Click, gestures[0])
	assert.Equal(t, button.Click, gestures[1])
}

func TestDoubleClickDoesNotAlsoEmitClick(t *testing.T) {
	r := button.NewRecognizer(testTwice, testPress)

	// After the double click fires, the settle run keeps growing past
	// the click threshold; the latch must swallow the would-be click
	levels := seq(repeat(true, 2), repeat(false, 1), repeat(true, 2), repeat(false, 1), repeat(true, wait+5))
	gestures := feed(r, levels)

	require.Len(t, gestures, 1)
	assert.Equal(t, button.DoubleClick, gestures[0])
}

func TestSettleThresholdIsExact(t *testing.T) {
	r := button.NewRecognizer(testTwice, testPress)

	// 0.7 s at the 100 ms cadence must resolve to exactly 7 samples
	// despite the inexact float quotient; the 6th settle sample fires
	// nothing, the 7th confirms the click
	levels := seq(repeat(true, 2), repeat(false, 2), repeat(true, wait-1))
	require.Empty(t, feed(r, levels))

	g, ok := r.Feed(true)
	require.True(t, ok)
	assert.Equal(t, button.Click, g)
}

func TestSlowDoubleClick(t *testing.T) {
	r := button.NewRecognizer(testTwice, testPress)

	// The second press starts 0.6 s after the first release, inside
	// the twice threshold: one double click, with no premature click
	// from the not-yet-settled gap
	levels := seq(repeat(true, 2), repeat(false, 2), repeat(true, wait-1),
		repeat(false, 2), repeat(true, 3))
	gestures := feed(r, levels)

	require.Len(t, gestures, 1)
	assert.Equal(t, button.DoubleClick, gestures[0])
}

func TestTwiceDominantThresholds(t *testing.T) {
	// time.twice above time.press is a valid configuration; the window
	// must still span the whole click pattern
	r := button.NewRecognizer(2.0, 0.5)

	levels := seq(repeat(true, 3), repeat(false, 2), repeat(true, 20))
	gestures := feed(r, levels)

	require.Len(t, gestures, 1)
	assert.Equal(t, button.Click, gestures[0])
}

func TestShortGapIsNotAClick(t *testing.T) {
	r := button.NewRecognizer(testTwice, testPress)

	// The settle run stays below the wait threshold: no click yet
	levels := seq(repeat(true, 3), repeat(false, 2), repeat(true, wait-1))
	assert.Empty(t, feed(r, levels))
}

func TestLongPressReleaseDoesNotEmitClick(t *testing.T) {
	r := button.NewRecognizer(testTwice, testPress)

	// Hold for a long press, release, settle. The press run has pushed
	// the leading idle out of the bounded window, so no click pattern
	// can assemble from the same samples.
	levels := seq(repeat(true, 2), repeat(false, size+2), repeat(true, wait+3))
	gestures := feed(r, levels)

	require.Len(t, gestures, 1)
	assert.Equal(t, button.LongPress, gestures[0])
}

func TestPriorityOrder(t *testing.T) {
	assert.Equal(t, [3]button.Gesture{button.Click, button.DoubleClick, button.LongPress}, button.Priority)
}

func TestGestureNames(t *testing.T) {
	assert.Equal(t, "click", button.Click.String())
	assert.Equal(t, "twice", button.DoubleClick.String())
	assert.Equal(t, "press", button.LongPress.String())
}

func TestSamplerEmitsGesture(t *testing.T) {
	// Short thresholds keep the wall-clock time of this test down:
	// press 0.3s (3 samples), twice 0.2s (2 settle samples)
	recognizer := button.NewRecognizer(0.2, 0.3)
	input := &hw.FakeButton{Levels: seq(repeat(true, 2), repeat(false, 1), repeat(true, 30))}
	sampler := button.NewSampler(input, recognizer)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go sampler.Run(ctx)

	select {
	case gesture := <-sampler.Gestures():
		assert.Equal(t, button.Click, gesture)
	case <-ctx.Done():
		t.Fatal("no gesture before timeout")
	}
}
