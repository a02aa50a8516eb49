// Package session is the Redis registry of persisted login sessions.
//
// A record is written on login, extended on refresh and deleted on logout.
// A password change revokes every other record of the same user through the
// per-user index. Record expiry is checked against the injected clock; Redis
// key TTLs only bound memory.
//
// # What this package must NOT do
//
//   - Parse or sign tokens. See package jwt.
//   - Decide whether an operation is permitted. The engine owns the session
//     state machine.
//   - Store passwords or hashes.
package session
