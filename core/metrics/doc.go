// Package metrics defines the per-cycle record and the sink interfaces the
// controller reports to. Concrete sinks (Prometheus, InfluxDB, SQLite, JSONL)
// live in infra/metrics and register themselves with the factory so they can
// be combined from configuration with NewSink. The MQTT publisher in
// infra/mqtt implements Sink as well and is added to the MultiSink by app.
package metrics
