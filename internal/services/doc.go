// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp cycle IDs, segment indexes, stage names, and
//     the speech engine under attempt for logging.
//   - Structured error markers plus the Wrap helper, with IsPermanent and
//     Classify deciding whether a failure is worth retrying and how it is
//     reported.
package services
