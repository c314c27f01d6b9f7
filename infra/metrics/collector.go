package metrics

import (
	"context"

	"github.com/kilianp07/chargectl/core/events"
	coremetrics "github.com/kilianp07/chargectl/core/metrics"
	"github.com/kilianp07/chargectl/infra/logger"
	"github.com/kilianp07/chargectl/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards every event
// to rec. It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], rec coremetrics.EventRecorder, log logger.Logger) {
	if bus == nil || rec == nil {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
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
				if err := rec.RecordEvent(ev); err != nil {
					log.Warnf("record event %s: %v", ev.Kind, err)
				}
			}
		}
	}()
}
