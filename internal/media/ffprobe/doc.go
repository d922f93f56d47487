// Package ffprobe decodes ffprobe JSON reports for narration and segment files.
//
// The renderer uses Duration on the narration to force the clip length, then
// Inspect on the rendered segment to check its streams and frame size.
package ffprobe
