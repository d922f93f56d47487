// Package textutil provides the text clean-up helpers shared by the feed,
// translation, and speech stages: narration sanitizing, word-bounded
// truncation, terminal punctuation, and chunking for length-limited APIs.
package textutil
