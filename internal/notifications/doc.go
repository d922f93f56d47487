// Package notifications delivers broadcast events via ntfy.
//
// The default implementation publishes to the ntfy topic configured in
// config.toml (or NTFY_TOPIC) and degrades to a no-op when no topic is set.
// Each event kind can be switched off individually. The orchestrator depends
// only on the Service interface.
package notifications
