// Package storage is the persistence boundary for applicants and users.
//
// It exposes a raw Store interface implemented by in-memory, MongoDB and
// PostgreSQL backends, and a Repository that narrows those stores to the
// read/absent and write/propagate contract used by the HTTP layer.
package storage
