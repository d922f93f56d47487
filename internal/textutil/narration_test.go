package textutil

import "testing"

func TestSanitizeNarration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Rais \"amesema\"\nleo", "Rais amesema leo"},
		{"  “Habari” za ‘leo’  ", "Habari za leo"},
		{"line1\r\n\tline2", "line1 line2"},
		// Decomposed e + combining acute becomes the single precomposed rune.
		{"Cafe\u0301", "Caf\u00e9"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := SanitizeNarration(tc.in); got != tc.want {
			t.Fatalf("SanitizeNarration(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("a  b\nc d", 3); got != "a b c" {
		t.Fatalf("got %q", got)
	}
	if got := TruncateWords("a b", 80); got != "a b" {
		t.Fatalf("got %q", got)
	}
	if got := TruncateWords(" a   b ", 0); got != "a b" {
		t.Fatalf("got %q", got)
	}
}

func TestEnsureTerminal(t *testing.T) {
	tests := map[string]string{
		"Habari":     "Habari.",
		"Habari.":    "Habari.",
		"Kweli?":     "Kweli?",
		"Hongera!  ": "Hongera!",
		"Subiri…":    "Subiri…",
		"":           "",
		"mwisho,":    "mwisho,.",
	}
	for in, want := range tests {
		if got := EnsureTerminal(in); got != want {
			t.Fatalf("EnsureTerminal(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShortenAndRuneLen(t *testing.T) {
	if got := Shorten("abcdef", 3); got != "abc…" {
		t.Fatalf("Shorten = %q", got)
	}
	if got := Shorten("abc", 3); got != "abc" {
		t.Fatalf("Shorten = %q", got)
	}
	if RuneLen("  héllo ") != 5 {
		t.Fatalf("RuneLen mismatch")
	}
}
