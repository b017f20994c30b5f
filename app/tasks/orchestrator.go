package tasks

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/rss-harvest/app/feed"
	"github.com/lysyi3m/rss-harvest/app/observe"
)

type Batch struct {
	ID             string
	ExtractionDate time.Time
	Records        []feed.Record
}

// Orchestrator fetches every configured feed on a bounded pool and collects
// the extracted records into one batch. Row order follows completion order.
type Orchestrator struct {
	feeds       FeedSource
	extractor   EntryExtractor
	workerCount int
	observer    observe.Observer

	// Location decides the calendar day used as the batch extraction date.
	Location *time.Location
	Now      func() time.Time
}

func NewOrchestrator(feeds FeedSource, extractor EntryExtractor, workerCount int, observer observe.Observer) *Orchestrator {
	if workerCount < 1 {
		workerCount = DefaultWorkerCount()
	}
	if observer == nil {
		observer = observe.Nop()
	}

	return &Orchestrator{
		feeds:       feeds,
		extractor:   extractor,
		workerCount: workerCount,
		observer:    observer,
		Location:    time.Local,
		Now:         time.Now,
	}
}

// DefaultWorkerCount sizes the pool to available concurrency, not to the
// number of feeds.
func DefaultWorkerCount() int {
	return min(32, runtime.NumCPU()+4)
}

func (o *Orchestrator) Run(ctx context.Context, configs []*feed.Config) Batch {
	startedAt := o.Now().In(o.Location)
	batch := Batch{
		ID:             uuid.NewString(),
		ExtractionDate: time.Date(startedAt.Year(), startedAt.Month(), startedAt.Day(), 0, 0, 0, 0, o.Location),
	}

	span := o.observer.Start(ctx, "orchestrate", "batch_id", batch.ID, "feeds", len(configs))

	results := &recordAccumulator{}
	pool := NewPool(ctx, min(o.workerCount, max(len(configs), 1)), o.observer)
	pool.Start()

	submitted := 0
	for _, config := range configs {
		if !config.Settings.IsEnabled() {
			slog.Debug("Feed disabled, skipping", "feed", config.Name)
			continue
		}

		task := NewFetchFeedTask(config, o.feeds, o.extractor, batch.ExtractionDate, results.append)
		if err := pool.Submit(task); err != nil {
			slog.Warn("Failed to submit FetchFeedTask", "feed", config.Name, "error", err)
			continue
		}
		submitted++
	}

	pool.Stop()

	batch.Records = results.records()

	span.End(ctx.Err(), "submitted", submitted, "records", len(batch.Records))
	return batch
}

type recordAccumulator struct {
	mu   sync.Mutex
	rows []feed.Record
}

func (a *recordAccumulator) append(records []feed.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, records...)
}

func (a *recordAccumulator) records() []feed.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rows
}
