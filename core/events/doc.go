// Package events defines the charging events emitted on the event bus.
//
// Start, stop, manual override and restart events are forwarded to the user
// as notifications; every event is counted by the metrics collector.
package events
