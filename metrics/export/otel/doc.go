// Package otel binds goGuard engine counters to OpenTelemetry observable
// instruments.
//
// [NewExporter] creates one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per cumulative latency bucket, all fed by a
// single callback that reads [goGuard.Engine.MetricsSnapshot].
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
