package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/chargectl/core/charging"
	"github.com/kilianp07/chargectl/core/events"
	"github.com/kilianp07/chargectl/infra/logger"
	"github.com/kilianp07/chargectl/internal/eventbus"
)

const notificationTitle = "EV charger"

// StartNotifier forwards user relevant events to n until ctx is done.
func StartNotifier(ctx context.Context, bus *eventbus.TypedBus[events.Event], n charging.Notifier, log logger.Logger) {
	if bus == nil || n == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if !ev.Notifiable() {
					continue
				}
				if err := n.Notify(ctx, notificationTitle, Message(ev)); err != nil {
					log.Warnf("notify %s: %v", ev.Kind, err)
				}
			}
		}
	}()
}

// Message renders the notification text of an event.
func Message(ev events.Event) string {
	switch ev.Kind {
	case events.ChargingStarted:
		return fmt.Sprintf("Charging started at %dA (%s)", ev.Amps, ev.Plan.Label())
	case events.ChargingStopped:
		return fmt.Sprintf("Charging stopped (%s)", ev.Plan.Label())
	case events.ManualOverride:
		if ev.Message != "" {
			return ev.Message
		}
		return "Charger changed manually, switched to Manual"
	case events.ControllerRestarted:
		return "Charge controller restarted after an error: " + ev.Message
	default:
		if ev.Message != "" {
			return fmt.Sprintf("%s: %s", ev.Kind, ev.Message)
		}
		return string(ev.Kind)
	}
}
