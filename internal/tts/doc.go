// Package tts turns narration scripts into audio files through an ordered
// chain of speech engines.
//
// Engines are tried in configured order. Each attempt writes to its own
// scratch file; an attempt succeeds only when that file exceeds the minimum
// size, at which point it is renamed to audio_<index>.mp3. Scratch files from
// failed attempts are deleted before the next engine runs, so a later engine
// never inherits an earlier engine's partial output.
package tts
