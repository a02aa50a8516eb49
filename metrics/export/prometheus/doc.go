// Package prometheus renders goGuard engine counters in the Prometheus
// text exposition format.
//
// [NewExporter] reads [goGuard.Engine.MetricsSnapshot] on every scrape.
// Counters are named goguard_*_total and the verification latency
// histogram is goguard_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in a global registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
