// Package preflight provides readiness checks for the filesystem paths,
// credentials, and endpoints habari depends on.
//
// These checks run in two contexts:
//   - The run command calls RunAll at startup and logs every result; a missing
//     stream key stops the process before any cycle begins.
//   - The CLI "habari status" command uses the individual check functions to
//     display health.
//
// Checks for optional features are skipped when the feature is not configured.
package preflight
