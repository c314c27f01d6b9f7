// Package charging runs the control loop: it reads a snapshot from the
// wallbox, evaluates every charging plan, records the cycle, detects manual
// interventions and brings the charger to the active plan's target.
package charging
