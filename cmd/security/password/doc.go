// Package password hashes and verifies user passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<KiB>,t=<iterations>,p=<parallelism>$<salt>$<key>
//
// Encoded hashes are treated as untrusted input: Verify refuses parameters far
// above the configured cost so a tampered record cannot pin a CPU.
package password
