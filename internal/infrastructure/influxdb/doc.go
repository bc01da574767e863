// Package influxdb mirrors the bridge's event log to InfluxDB.
//
// The in-memory event log holds the most recent entries only; when
// InfluxDB is enabled, every appended event is also written as a point to
// the configured bucket, giving durable long-term history.
//
// Writes use the non-blocking batched write API: they never delay event
// ingestion, and write failures are reported through an error callback
// and otherwise dropped. The mirror is strictly best-effort and optional.
package influxdb
