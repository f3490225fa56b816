// Package notifications delivers wizard events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Batch outcomes and
// errors can be toggled independently through the [notifications] section.
package notifications
