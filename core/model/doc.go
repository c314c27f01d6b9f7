// Package model holds the value types shared by the decision engine, the
// controller and the adapters: the per-cycle telemetry snapshot and the
// closed enumerations for charging plans, battery strategies and power
// sources.
package model
