package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// quoteReplacer drops straight and typographic quote marks; some speech
// engines fail or mispronounce text containing them.
var quoteReplacer = strings.NewReplacer(
	"\"", "",
	"'", "",
	"‘", "",
	"’", "",
	"“", "",
	"”", "",
	"«", "",
	"»", "",
	"`", "",
)

// SanitizeNarration prepares text for a speech engine: quotes removed, line
// breaks turned into spaces, NFC-normalized, and whitespace collapsed.
func SanitizeNarration(text string) string {
	text = norm.NFC.String(text)
	text = quoteReplacer.Replace(text)
	return CollapseSpace(text)
}

// CollapseSpace replaces every run of whitespace, including newlines, with a
// single space and trims the ends.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// TruncateWords keeps the first max whitespace-separated words joined by a
// single space. A non-positive max only collapses whitespace.
func TruncateWords(text string, max int) string {
	words := strings.Fields(text)
	if max > 0 && len(words) > max {
		words = words[:max]
	}
	return strings.Join(words, " ")
}

// EnsureTerminal appends a period unless text already ends in sentence
// punctuation. Empty input stays empty.
func EnsureTerminal(text string) string {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	if text == "" {
		return text
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	switch last {
	case '.', '!', '?', '…':
		return text
	}
	return text + "."
}

// RuneLen reports the number of characters in s after trimming.
func RuneLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// Shorten trims s to at most max runes for log output, adding an ellipsis.
func Shorten(s string, max int) string {
	s = CollapseSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}
