package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-harvest/app/observe"
)

// FeedFetcher turns one feed URL into its entries. A feed that cannot be
// fetched or parsed yields no entries.
type FeedFetcher struct {
	fetcher  *Fetcher
	parser   *Parser
	observer observe.Observer
}

func NewFeedFetcher(fetcher *Fetcher, parser *Parser, observer observe.Observer) *FeedFetcher {
	if observer == nil {
		observer = observe.Nop()
	}
	return &FeedFetcher{
		fetcher:  fetcher,
		parser:   parser,
		observer: observer,
	}
}

func (f *FeedFetcher) Run(ctx context.Context, feedURL string, timeout time.Duration) []RawEntry {
	span := f.observer.Start(ctx, "fetch_feed", "url", feedURL)

	data, err := f.fetcher.Get(ctx, feedURL, timeout)
	if err != nil {
		slog.Warn("Failed to fetch feed", "url", feedURL, "error", err)
		span.End(err)
		return nil
	}

	entries, err := f.parser.Run(data)
	if err != nil {
		slog.Warn("Failed to parse feed", "url", feedURL, "error", err)
		span.End(err)
		return nil
	}

	span.End(nil, "entries", len(entries))
	return entries
}
