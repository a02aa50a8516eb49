// Package audit defines the audit event model, the built-in sinks and the
// asynchronous dispatcher that decouples emission from sink latency.
//
// The root package re-exports these types; nothing outside the module
// imports this package directly.
package audit
