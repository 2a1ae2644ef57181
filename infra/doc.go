// Package infra groups the adapters behind the planning core: the
// branch-and-bound solver, zerolog logging, the Prometheus and InfluxDB
// metrics sinks and the MQTT plan publisher. Adapters import core packages,
// never the other way round.
package infra
