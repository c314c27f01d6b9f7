package events

import (
	"testing"
	"time"

	"github.com/kilianp07/chargectl/core/model"
)

func TestNewEvent(t *testing.T) {
	now := time.Now()
	a := New(ChargingStarted, now, model.PlanSolarOnly, 8, "start")
	b := New(ChargingStarted, now, model.PlanSolarOnly, 8, "start")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected unique ids, got %q and %q", a.ID, b.ID)
	}
	if a.Kind != ChargingStarted || a.Amps != 8 || !a.Time.Equal(now) {
		t.Fatalf("unexpected event %+v", a)
	}
}

func TestNotifiable(t *testing.T) {
	want := map[Kind]bool{
		ChargingStarted:     true,
		ChargingStopped:     true,
		ManualOverride:      true,
		ControllerRestarted: true,
		AmpsChanged:         false,
		PlanEscalated:       false,
		ChargerDisconnected: false,
		ScheduledStart:      false,
	}
	for k, w := range want {
		if got := (Event{Kind: k}).Notifiable(); got != w {
			t.Errorf("%s: got %v want %v", k, got, w)
		}
	}
}
