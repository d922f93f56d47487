// Package logs reads habari run logs for the CLI.
//
// Run logs are JSON lines written by the daemon beside its console output.
// Tail reads the last N matching lines or follows a file from an offset, and
// Filter narrows records by level, cycle, or event type. Callers bound follow
// mode with a context so polling stops when the CLI exits.
package logs
