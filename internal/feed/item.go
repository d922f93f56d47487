package feed

// Item is one news entry ready for narration. Items are immutable once
// returned by Fetch.
type Item struct {
	Title    string
	Summary  string
	ImageURL string
	// Source is the feed address the entry came from.
	Source string
	Link   string
	// PlaceholderImage reports whether ImageURL came from the placeholder service.
	PlaceholderImage bool
}
