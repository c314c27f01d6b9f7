package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chargectl/core/model"
)

// Kind identifies what happened to the charger.
type Kind string

const (
	ChargingStarted     Kind = "charging_started"
	ChargingStopped     Kind = "charging_stopped"
	AmpsChanged         Kind = "amps_changed"
	ManualOverride      Kind = "manual_override"
	PlanEscalated       Kind = "plan_escalated"
	ChargerDisconnected Kind = "charger_disconnected"
	ScheduledStart      Kind = "scheduled_start"
	ControllerRestarted Kind = "controller_restarted"
)

// Event is published by the controller every time it accepts a transition
// or acts on the charger.
type Event struct {
	ID      string             `json:"id"`
	Kind    Kind               `json:"kind"`
	Time    time.Time          `json:"time"`
	Plan    model.ChargingPlan `json:"plan"`
	Amps    int                `json:"amps"`
	Message string             `json:"message,omitempty"`
}

// New returns an event of the given kind stamped with a fresh identifier.
func New(kind Kind, at time.Time, plan model.ChargingPlan, amps int, msg string) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Time: at, Plan: plan, Amps: amps, Message: msg}
}

// Notifiable reports whether the event is worth a user notification.
func (e Event) Notifiable() bool {
	switch e.Kind {
	case ChargingStarted, ChargingStopped, ManualOverride, ControllerRestarted:
		return true
	default:
		return false
	}
}
