package state_test

import (
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/pentactl/internal/state"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	store := state.New(4)

	assert.True(t, store.FanEnabled())
	assert.Zero(t, store.DisplayIndex())
	assert.Equal(t, 4, store.PageCount())
	assert.Zero(t, store.DiskTempAverage())
}

func TestToggleFanEnabled(t *testing.T) {
	store := state.New(4)

	assert.False(t, store.ToggleFanEnabled())
	assert.False(t, store.FanEnabled())
	assert.True(t, store.ToggleFanEnabled())
	assert.True(t, store.FanEnabled())
}

func TestConcurrentTogglesNeverLoseFlips(t *testing.T) {
	store := state.New(4)

	const toggles = 100 // even per goroutine, so the net effect is identity
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < toggles; j++ {
				store.ToggleFanEnabled()
			}
		}()
	}
	wg.Wait()

	assert.True(t, store.FanEnabled())
}

func TestDisplayIndexWraps(t *testing.T) {
	store := state.New(3)

	assert.Equal(t, 1, store.NextDisplayIndex())
	assert.Equal(t, 2, store.NextDisplayIndex())
	assert.Equal(t, 0, store.NextDisplayIndex())
	assert.Equal(t, 1, store.NextDisplayIndex())
}

func TestPageCountFloor(t *testing.T) {
	store := state.New(0)

	assert.Equal(t, 1, store.PageCount())
	assert.Zero(t, store.NextDisplayIndex())
}

func TestDiskTempFields(t *testing.T) {
	store := state.New(4)

	store.SetDiskTempAverage(42.5)
	assert.InDelta(t, 42.5, store.DiskTempAverage(), 1e-9)

	now := time.Now()
	store.SetLastDiskTempPoll(now)
	assert.Equal(t, now.UnixNano(), store.LastDiskTempPoll().UnixNano())
}
