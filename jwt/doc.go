// Package jwt issues and verifies the signed tokens that let a client resume
// a persisted session on a new connection.
//
// A token carries the username as its subject and the session id as the
// "sid" claim. A valid signature is not sufficient on its own: the engine
// also checks that the session id is still present in the session registry,
// so logout and credential changes revoke outstanding tokens.
package jwt
