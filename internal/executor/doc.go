// Package executor runs an operation list against the backend execute
// endpoint one operation at a time.
//
// Each run marks the operation in_progress, sends its id with the shared
// preview state, and writes the returned status, preview, and state back
// before the next operation starts. Batches stop at the first operation that
// does not complete. Every failure path converges on the same handling: the
// operation is forced to failed, the cause is logged with its services
// marker, and a single apology notice lands in the list's transcript.
//
// Batches iterate a copy of the id sequence taken when the batch starts, and
// only one batch may run on an executor at a time.
package executor
