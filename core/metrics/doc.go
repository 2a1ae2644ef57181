// Package metrics defines the sink interfaces used to record planning runs
// and solver progress. Concrete sinks (Prometheus, InfluxDB) live in
// infra/metrics and register themselves by type name; NewMetricsSink returns
// a MultiSink automatically when several sinks are configured.
package metrics
