// Package operation models the ordered, status-tracked operation lists that
// the wizard executes remotely: blueprint transforms and plan steps.
//
// Both lists share one implementation. A Kind describes the endpoints and
// payload field names for each flavour, and List guards the ordered sequence
// that is the single source of truth for display and execution order.
package operation
