// Package metrics implements the cycle sinks registered with the core
// metrics factory: Prometheus gauges, InfluxDB points, a SQLite history table
// and a rotating JSONL file. It also provides the in-memory StatusSink and
// the HTTP server exposing /metrics.
package metrics
