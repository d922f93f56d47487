// Package feed pulls news entries from the configured syndication sources.
//
// Fetcher walks each source in order, keeping at most max_items_per_feed
// entries per source. Every Item carries a non-empty title, summary, and image
// URL: missing text falls back to fixed placeholders and a missing image falls
// back to the placeholder image service with a per-call random token. A source
// that cannot be fetched or parsed is logged and skipped.
package feed
