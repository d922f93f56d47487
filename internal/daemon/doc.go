// Package daemon owns the lifecycle of a long-running habari broadcaster.
//
// It enforces a single instance per state directory with a flock-based lock,
// sweeps leftovers from an interrupted run before the first cycle, and runs
// the broadcast loop until it is stopped. Cycle logic lives in the pipeline
// package; the daemon only handles startup, shutdown, and status.
package daemon
