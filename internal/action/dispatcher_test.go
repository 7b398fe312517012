package action_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/pentactl/internal/action"
	"codeberg.org/mutker/pentactl/internal/button"
	"codeberg.org/mutker/pentactl/internal/config"
	"codeberg.org/mutker/pentactl/internal/state"
	"github.com/stretchr/testify/assert"
)

func TestDispatchSliderAdvancesPage(t *testing.T) {
	store := state.New(3)
	d := action.NewDispatcher(store, config.KeyConfig{Click: action.CmdSlider})

	d.Dispatch(button.Click)
	assert.Equal(t, 1, store.DisplayIndex())

	d.Dispatch(button.Click)
	d.Dispatch(button.Click)
	assert.Zero(t, store.DisplayIndex())
}

func TestDispatchSwitchTogglesFan(t *testing.T) {
	store := state.New(3)
	d := action.NewDispatcher(store, config.KeyConfig{Twice: action.CmdSwitch})

	d.Dispatch(button.DoubleClick)
	assert.False(t, store.FanEnabled())

	d.Dispatch(button.DoubleClick)
	assert.True(t, store.FanEnabled())
}

func TestDispatchNoneAndUnknownAreInert(t *testing.T) {
	store := state.New(3)
	d := action.NewDispatcher(store, config.KeyConfig{
		Click: action.CmdNone,
		Twice: "reboot",
	})

	d.Dispatch(button.Click)
	d.Dispatch(button.DoubleClick)
	d.Dispatch(button.LongPress) // empty binding falls back to none

	assert.Zero(t, store.DisplayIndex())
	assert.True(t, store.FanEnabled())
}

func TestRunConsumesQueueUntilClosed(t *testing.T) {
	store := state.New(3)
	d := action.NewDispatcher(store, config.KeyConfig{
		Click: action.CmdSlider,
		Press: action.CmdSwitch,
	})

	gestures := make(chan button.Gesture, 3)
	gestures <- button.Click
	gestures <- button.Click
	gestures <- button.LongPress
	close(gestures)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background(), gestures)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not drain the queue")
	}

	assert.Equal(t, 2, store.DisplayIndex())
	assert.False(t, store.FanEnabled())
}
