// Package token verifies static bearer secrets such as the admin token.
//
// Secrets are never compared directly: the configured value is reduced to a
// SHA-256 digest at startup and presented values are digested and compared in
// constant time, so neither content nor length leaks through timing.
package token
