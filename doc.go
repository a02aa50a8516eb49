// Package goGuard is the account-security policy core of an application
// with username and password logins. It grades password strength, locks
// usernames after repeated failures, gates logins and password changes, and
// drives the per-connection session lifecycle.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build]. A [Session] has a single owner.
//
// # Architecture boundaries
//
// goGuard is the public surface: [Engine], [Builder], [Config], [Session] and
// the result and error types. Accounts are reached only through
// [AccountRepository]; credentials are checked through [CredentialVerifier].
// Lockout state lives in a lockout.Tracker, in memory or in Redis. Persisted
// sessions, when configured, live in the session registry and are carried by
// signed tokens.
//
// # Error contract
//
// Every operation returns an error whose kind selects the user-facing
// outcome. [UserMessage] turns any of them into display text. Invalid input is
// a [*ValidationError], an active lockout is a [*LockedError], and any
// collaborator failure or timeout is an [*UpstreamError] that matches
// [ErrUpstreamUnavailable]. Credential failures always return
// [ErrInvalidCredentials] whatever the cause.
//
// # What this package must NOT do
//
//   - Log, audit or return passwords or password hashes.
//   - Count invalid input or upstream failures toward a lockout.
//   - Tell an unknown username apart from a wrong password.
//   - Import any sub-package that re-imports goGuard.
package goGuard
