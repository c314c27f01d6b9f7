package homeassistant

import (
	"context"
	"sync"

	"github.com/kilianp07/chargectl/core/model"
)

// Notification is a message captured by Mock.
type Notification struct {
	Title   string
	Message string
}

// Mock is an in-memory wallbox. Actuation calls update the snapshot it
// returns, so the controller observes its own commands.
type Mock struct {
	mu    sync.Mutex
	snap  model.Snapshot
	notes []Notification
}

// DefaultMockSnapshot is a sunny afternoon with the car plugged in.
func DefaultMockSnapshot() model.Snapshot {
	return model.Snapshot{
		ChargingAmps:     6,
		ChargingLimit:    80,
		Plan:             model.PlanSolarOnly,
		TopUpLimit:       90,
		InverterSoC:      70,
		CarSoC:           40,
		BatteryLoad:      0,
		TotalLoad:        800,
		GridPower:        -2200,
		PVPower:          3000,
		ChargerConnected: true,
	}
}

// NewMock returns a Mock starting at initial.
func NewMock(initial model.Snapshot) *Mock {
	return &Mock{snap: initial}
}

// Update mutates the simulated readings.
func (m *Mock) Update(fn func(*model.Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.snap)
}

// Notifications returns the captured notifications.
func (m *Mock) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.notes...)
}

func (m *Mock) Snapshot(context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, nil
}

func (m *Mock) ChargerConnected(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.ChargerConnected, nil
}

func (m *Mock) SetCharging(_ context.Context, on bool) error {
	m.Update(func(s *model.Snapshot) { s.Charging = on })
	return nil
}

func (m *Mock) SetChargingAmps(_ context.Context, amps int) error {
	m.Update(func(s *model.Snapshot) { s.ChargingAmps = amps })
	return nil
}

func (m *Mock) SetChargingPlan(_ context.Context, plan model.ChargingPlan) error {
	m.Update(func(s *model.Snapshot) { s.Plan = plan })
	return nil
}

func (m *Mock) Notify(_ context.Context, title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, Notification{Title: title, Message: message})
	return nil
}
