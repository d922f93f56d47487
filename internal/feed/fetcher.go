package feed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"

	"habari/internal/config"
	"habari/internal/httpfetch"
	"habari/internal/logging"
	"habari/internal/services"
	"habari/internal/textutil"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8"

var placeholderSeq atomic.Uint64

// Fetcher retrieves items from every configured source.
type Fetcher struct {
	sources     []string
	maxItems    int
	timeout     time.Duration
	title       string
	summary     string
	placeholder string
	client      *httpfetch.Client
	logger      *slog.Logger
}

// NewFetcher builds a Fetcher from the feeds section of cfg.
func NewFetcher(cfg *config.Config, client *httpfetch.Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		sources:     append([]string(nil), cfg.Feeds.URLs...),
		maxItems:    cfg.Feeds.MaxItemsPerFeed,
		timeout:     time.Duration(cfg.Feeds.RequestTimeout) * time.Second,
		title:       cfg.Feeds.PlaceholderTitle,
		summary:     cfg.Feeds.PlaceholderSummary,
		placeholder: cfg.Feeds.PlaceholderImageURL,
		client:      client,
		logger:      logging.NewComponentLogger(logger, "feed"),
	}
}

// Fetch returns items from all sources in source order. Failing sources are
// logged and contribute nothing; the result may be empty.
func (f *Fetcher) Fetch(ctx context.Context) []Item {
	logger := logging.WithContext(ctx, f.logger)
	var items []Item
	for _, source := range f.sources {
		if ctx.Err() != nil {
			break
		}
		fetched, err := f.fetchSource(ctx, source)
		if err != nil {
			logging.WarnWithContext(logger, "feed source skipped", "feed_source_failed",
				logging.String("source", source),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the feed address and network connectivity"),
				logging.String(logging.FieldImpact, "this source contributes no stories this cycle"),
			)
			continue
		}
		logger.Info("feed fetched",
			logging.String(logging.FieldEventType, "feed_fetched"),
			logging.String("source", source),
			logging.Int("items", len(fetched)),
		)
		items = append(items, fetched...)
	}
	return items
}

func (f *Fetcher) fetchSource(ctx context.Context, source string) ([]Item, error) {
	resp, err := f.client.Get(ctx, httpfetch.Request{URL: source, Accept: feedAccept, Timeout: f.timeout})
	if err != nil {
		return nil, err
	}
	parser := gofeed.NewParser()
	parser.AtomTranslator = typedLinkTranslator{}
	parsed, err := parser.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "feed", "parse", source, err)
	}

	entries := parsed.Items
	if f.maxItems > 0 && len(entries) > f.maxItems {
		entries = entries[:f.maxItems]
	}
	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		items = append(items, f.toItem(source, entry))
	}
	return items, nil
}

func (f *Fetcher) toItem(source string, entry *gofeed.Item) Item {
	title := plainText(entry.Title)
	item := Item{
		Title:  title,
		Source: source,
		Link:   strings.TrimSpace(entry.Link),
	}
	if item.Title == "" {
		item.Title = f.title
	}
	item.Summary = firstNonEmpty(plainText(entry.Description), plainText(entry.Content), title, f.summary)

	if url := SelectImage(entry); url != "" {
		item.ImageURL = url
	} else {
		item.ImageURL = PlaceholderURL(f.placeholder)
		item.PlaceholderImage = true
	}
	return item
}

// typedLinkTranslator keeps every typed Atom link as an enclosure. The stock
// translator only keeps rel="enclosure", which hides rel="related" images.
type typedLinkTranslator struct{}

func (typedLinkTranslator) Translate(raw interface{}) (*gofeed.Feed, error) {
	translated, err := (&gofeed.DefaultAtomTranslator{}).Translate(raw)
	if err != nil {
		return nil, err
	}
	source, ok := raw.(*atom.Feed)
	if !ok || len(source.Entries) != len(translated.Items) {
		return translated, nil
	}
	for i, entry := range source.Entries {
		if entry == nil || translated.Items[i] == nil {
			continue
		}
		translated.Items[i].Enclosures = typedLinks(entry.Links, translated.Items[i].Enclosures)
	}
	return translated, nil
}

// typedLinks lists typed links in document order, then any existing
// enclosure the links did not already cover.
func typedLinks(links []*atom.Link, existing []*gofeed.Enclosure) []*gofeed.Enclosure {
	var out []*gofeed.Enclosure
	seen := make(map[string]bool)
	for _, link := range links {
		if link == nil || strings.TrimSpace(link.Type) == "" || strings.TrimSpace(link.Href) == "" {
			continue
		}
		out = append(out, &gofeed.Enclosure{URL: link.Href, Type: link.Type, Length: link.Length})
		seen[link.Href] = true
	}
	for _, enc := range existing {
		if enc != nil && !seen[enc.URL] {
			out = append(out, enc)
		}
	}
	return out
}

// SelectImage applies the image policy to one entry: the first media:content
// URL (directly or inside media:group), then the first enclosure or typed
// Atom link whose type names an image, then media:thumbnail and the parser's own image. It returns
// "" when the entry has none.
func SelectImage(entry *gofeed.Item) string {
	if entry == nil {
		return ""
	}
	if media, ok := entry.Extensions["media"]; ok {
		if url := firstAttr(media["content"], "url"); url != "" {
			return url
		}
		for _, group := range media["group"] {
			if url := firstAttr(group.Children["content"], "url"); url != "" {
				return url
			}
		}
	}
	for _, enc := range entry.Enclosures {
		if enc == nil {
			continue
		}
		if strings.Contains(strings.ToLower(enc.Type), "image") && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	if media, ok := entry.Extensions["media"]; ok {
		if url := firstAttr(media["thumbnail"], "url"); url != "" {
			return url
		}
	}
	if entry.Image != nil && strings.TrimSpace(entry.Image.URL) != "" {
		return strings.TrimSpace(entry.Image.URL)
	}
	return ""
}

// PlaceholderURL substitutes a fresh token for {token} in template. Tokens
// combine the wall clock with a process-wide sequence so two calls never
// produce the same URL.
func PlaceholderURL(template string) string {
	seq := placeholderSeq.Add(1)
	token := strconv.FormatInt(time.Now().UnixNano(), 36) + fmt.Sprintf("%04d", seq%10000)
	return strings.ReplaceAll(template, "{token}", token)
}

func firstAttr(exts []ext.Extension, key string) string {
	for _, e := range exts {
		if value := strings.TrimSpace(e.Attrs[key]); value != "" {
			return value
		}
	}
	return ""
}

// plainText strips markup and collapses whitespace.
func plainText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.ContainsAny(raw, "<&") {
		return textutil.CollapseSpace(raw)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return textutil.CollapseSpace(raw)
	}
	doc.Find("script, style").Remove()
	return textutil.CollapseSpace(doc.Text())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
