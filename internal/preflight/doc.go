// Package preflight provides the readiness checks behind "saasywrap doctor":
// state and log directory access, the session database schema, the session
// lock, and backend reachability.
package preflight
