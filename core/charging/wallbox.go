package charging

import (
	"context"

	"github.com/kilianp07/chargectl/core/events"
	"github.com/kilianp07/chargectl/core/model"
)

// Telemetry reads the charger and household sensors.
type Telemetry interface {
	// Snapshot reads every sensor and returns one consistent view.
	Snapshot(ctx context.Context) (model.Snapshot, error)
	// ChargerConnected reads only the charger connection state.
	ChargerConnected(ctx context.Context) (bool, error)
}

// Actuator drives the charger.
type Actuator interface {
	SetCharging(ctx context.Context, on bool) error
	SetChargingAmps(ctx context.Context, amps int) error
	SetChargingPlan(ctx context.Context, plan model.ChargingPlan) error
}

// Wallbox is a charger the controller can both observe and drive.
type Wallbox interface {
	Telemetry
	Actuator
}

// Notifier sends user visible messages.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Publisher receives the controller's charging events.
type Publisher interface {
	Publish(ev events.Event)
}
