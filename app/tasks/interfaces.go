package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-harvest/app/feed"
)

// TaskSchedulerInterface runs ingestion on a cron schedule and on demand.
// Used by the main application in serve mode and by the API run trigger.
//
//	scheduler := NewScheduler(schedule, runTimeout, newIngestTask)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.Trigger()
type TaskSchedulerInterface interface {
	Start() error
	Stop()
	Trigger() error
	IsRunning() bool
}

type FeedSource interface {
	Run(ctx context.Context, feedURL string, timeout time.Duration) []feed.RawEntry
}

type EntryExtractor interface {
	Run(ctx context.Context, entry feed.RawEntry, source *feed.Config, extractionDate time.Time) feed.Record
}
