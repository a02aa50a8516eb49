// Package password hashes and verifies account passwords with Argon2id.
//
// # Output format
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// Salt and key use unpadded base64. Padded values written by older
// deployments still verify.
//
// When a stored hash was produced with weaker parameters than the current
// config, [Argon2.NeedsUpgrade] reports true and the caller re-hashes after
// the next successful login.
//
// # What this package must NOT do
//
//   - Judge password strength. That lives in package strength.
//   - Store or fetch hashes.
//   - Log plaintext passwords.
package password
