// Package infra groups the adapters to the outside world: the Home
// Assistant wallbox, the MQTT state publisher, metrics sinks, Sentry and
// the zerolog logger. They implement interfaces declared under core and
// are wired together by package app.
package infra
