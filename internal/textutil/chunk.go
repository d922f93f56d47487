package textutil

import "strings"

// SplitChunks breaks text into pieces of at most max bytes, preferring
// sentence ends, then spaces. Words longer than max are split hard.
func SplitChunks(text string, max int) []string {
	text = strings.TrimSpace(text)
	if max <= 0 || len(text) <= max {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	var chunks []string
	for len(text) > max {
		cut := lastBoundary(text[:max], ".!?")
		if cut <= 0 {
			cut = strings.LastIndexByte(text[:max], ' ')
		}
		if cut <= 0 {
			cut = safeCut(text, max)
		}
		if piece := strings.TrimSpace(text[:cut]); piece != "" {
			chunks = append(chunks, piece)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

// lastBoundary returns the index just past the last terminator in s.
func lastBoundary(s, terminators string) int {
	idx := strings.LastIndexAny(s, terminators)
	if idx < 0 {
		return -1
	}
	return idx + 1
}

// safeCut backs max off to a UTF-8 rune start.
func safeCut(s string, max int) int {
	for max > 0 && max < len(s) && s[max]&0xC0 == 0x80 {
		max--
	}
	if max == 0 {
		return len(s)
	}
	return max
}
