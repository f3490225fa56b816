// Package session persists wizard sessions in SQLite.
//
// A session holds the requirement list, the blueprint and plan operation
// lists, their preview panels, and the per-channel chat transcripts. Lists are
// stored whole on every change so the ordered sequence in the database always
// matches the in-memory one; transcripts are append-only. The schema is
// embedded and versioned; a mismatched database is reported rather than
// migrated.
//
// AcquireLock provides the cross-process guard that keeps two CLI invocations
// from executing the same session concurrently.
package session
