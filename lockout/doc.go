// Package lockout tracks consecutive failed login attempts per username and
// locks a username for a fixed duration once a threshold is reached.
//
// # Trackers
//
//   - [MemoryTracker] keeps state in a map guarded by one mutex and evicts
//     expired entries with [MemoryTracker.Sweep] or a background sweeper.
//   - [RedisTracker] keeps state in a Redis hash per username and mutates it
//     with a single Lua script, so processes sharing Redis share lockouts.
//
// Both trackers take an injectable clock. Lock expiry is evaluated against
// that clock; Redis key TTLs only bound memory.
//
// # What this package must NOT do
//
//   - Verify credentials or know anything about accounts.
//   - Log usernames or attempt details. Callers own audit output.
package lockout
