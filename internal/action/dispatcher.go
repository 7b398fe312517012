// Package action consumes the gesture queue and executes the command
// each gesture is bound to in the configuration.
package action

import (
	"context"

	"codeberg.org/mutker/pentactl/internal/button"
	"codeberg.org/mutker/pentactl/internal/config"
	"codeberg.org/mutker/pentactl/internal/logger"
	"codeberg.org/mutker/pentactl/internal/state"
)

// Command names accepted by the key bindings.
const (
	CmdSlider = "slider" // advance the status display page
	CmdSwitch = "switch" // toggle the fan on or off
	CmdNone   = "none"
)

// Dispatcher is the single consumer of the gesture queue.
type Dispatcher struct {
	store    *state.Store
	bindings map[button.Gesture]string
}

func NewDispatcher(store *state.Store, keys config.KeyConfig) *Dispatcher {
	return &Dispatcher{
		store: store,
		bindings: map[button.Gesture]string{
			button.Click:       keys.Click,
			button.DoubleClick: keys.Twice,
			button.LongPress:   keys.Press,
		},
	}
}

// Run blocks on the gesture queue until it is closed or the context is
// cancelled.
func (d *Dispatcher) Run(ctx context.Context, gestures <-chan button.Gesture) {
	for {
		select {
		case <-ctx.Done():
			return
		case gesture, ok := <-gestures:
			if !ok {
				return
			}
			d.Dispatch(gesture)
		}
	}
}

// Dispatch executes the command bound to one gesture.
func (d *Dispatcher) Dispatch(gesture button.Gesture) {
	command := d.bindings[gesture]
	if command == "" {
		command = CmdNone
	}

	switch command {
	case CmdSlider:
		page := d.store.NextDisplayIndex()
		logger.Info().Str("gesture", gesture.String()).Int("page", page).Msg("display page advanced")
	case CmdSwitch:
		enabled := d.store.ToggleFanEnabled()
		logger.Info().Str("gesture", gesture.String()).Bool("fan_enabled", enabled).Msg("fan toggled")
	case CmdNone:
		logger.Debug().Str("gesture", gesture.String()).Msg("gesture ignored")
	default:
		logger.Warn().Str("gesture", gesture.String()).Str("command", command).Msg("unknown key binding")
	}
}
