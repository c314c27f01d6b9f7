package engine

import (
	"context"
	"fmt"
)

// Transition classifies drift between the remembered and observed actuator
// state.
type Transition int

const (
	TransitionExpected Transition = iota
	TransitionDisconnected
	TransitionScheduled
	TransitionIgnored
	TransitionManual
)

func (t Transition) String() string {
	switch t {
	case TransitionExpected:
		return "expected"
	case TransitionDisconnected:
		return "disconnected"
	case TransitionScheduled:
		return "scheduled"
	case TransitionIgnored:
		return "ignored"
	case TransitionManual:
		return "manual"
	default:
		return fmt.Sprintf("Transition(%d)", int(t))
	}
}

// ActuatorState is the charger's enable flag and amps setting.
type ActuatorState struct {
	Charging bool `json:"charging"`
	Amps     int  `json:"amps"`
}

// ConnectionCheck re-reads whether the charger is still plugged in. The
// controller's implementation waits one poll interval before reading.
type ConnectionCheck func(ctx context.Context) (connected bool, err error)

// ClassifyTransition decides how to react to observed differing from
// remembered. recheck is only invoked when charging stopped. An error from
// recheck is returned unchanged and the transition must be ignored.
func ClassifyTransition(ctx context.Context, observed, remembered ActuatorState, scheduled bool, recheck ConnectionCheck) (Transition, error) {
	if observed == remembered {
		return TransitionExpected, nil
	}
	if remembered.Charging && !observed.Charging && recheck != nil {
		connected, err := recheck(ctx)
		if err != nil {
			return TransitionExpected, err
		}
		if !connected {
			return TransitionDisconnected, nil
		}
	}
	if !remembered.Charging && observed.Charging && scheduled {
		return TransitionScheduled, nil
	}
	if observed.Charging == remembered.Charging && !observed.Charging {
		return TransitionIgnored, nil
	}
	return TransitionManual, nil
}
