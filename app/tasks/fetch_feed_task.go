package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-harvest/app/feed"
)

// FetchFeedTask pulls one feed and extracts its entries in order. Page
// fallbacks run synchronously inside the task.
type FetchFeedTask struct {
	Task
	FeedConfig     *feed.Config
	feeds          FeedSource
	extractor      EntryExtractor
	extractionDate time.Time
	collect        func([]feed.Record)
}

func NewFetchFeedTask(feedConfig *feed.Config, feeds FeedSource, extractor EntryExtractor, extractionDate time.Time, collect func([]feed.Record)) *FetchFeedTask {
	return &FetchFeedTask{
		Task:           NewTask(TaskTypeFetchFeed, feedConfig.Name),
		FeedConfig:     feedConfig,
		feeds:          feeds,
		extractor:      extractor,
		extractionDate: extractionDate,
		collect:        collect,
	}
}

func (t *FetchFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries := t.feeds.Run(ctx, t.FeedConfig.URL, t.FeedConfig.Settings.GetTimeout())

	records := make([]feed.Record, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		records = append(records, t.extractor.Run(ctx, entry, t.FeedConfig, t.extractionDate))
	}

	t.collect(records)

	slog.Info("Task completed",
		"type", "FetchedFeed",
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"entries", len(entries),
		"records", len(records))

	return ctx.Err()
}
