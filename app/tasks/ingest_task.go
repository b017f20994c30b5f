package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/rss-harvest/app/database"
	"github.com/lysyi3m/rss-harvest/app/feed"
	"github.com/lysyi3m/rss-harvest/app/observe"
)

type IngestOptions struct {
	WorkerCount int
	LoadMode    database.LoadMode
	Observer    observe.Observer
	Now         func() time.Time
}

// IngestTask is one full pull: orchestrate every enabled feed, normalize,
// keep recent complete records and load them into storage.
type IngestTask struct {
	Task
	configCache *feed.ConfigCache
	feeds       FeedSource
	pages       feed.PageSource
	repo        database.RecordRepository
	opts        IngestOptions

	Result IngestResult
}

type IngestResult struct {
	BatchID        string
	ExtractionDate time.Time
	Extracted      int
	Loaded         int
}

func NewIngestTask(configCache *feed.ConfigCache, feeds FeedSource, pages feed.PageSource, repo database.RecordRepository, opts IngestOptions) *IngestTask {
	if opts.Observer == nil {
		opts.Observer = observe.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LoadMode == "" {
		opts.LoadMode = database.LoadModeReplace
	}

	return &IngestTask{
		Task:        NewTask(TaskTypeIngest, ""),
		configCache: configCache,
		feeds:       feeds,
		pages:       pages,
		repo:        repo,
		opts:        opts,
	}
}

func (t *IngestTask) Execute(ctx context.Context) error {
	rules := t.configCache.Rules()

	normalizer, err := feed.NewNormalizer(rules)
	if err != nil {
		return fmt.Errorf("failed to create normalizer: %w", err)
	}

	extractor := feed.NewExtractor(t.pages, feed.NewClassifier(rules.Sources), t.opts.Observer)

	orchestrator := NewOrchestrator(t.feeds, extractor, t.opts.WorkerCount, t.opts.Observer)
	orchestrator.Location = normalizer.Location()
	orchestrator.Now = t.opts.Now

	batch := orchestrator.Run(ctx, t.configCache.GetEnabledConfigs())
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ingestion aborted: %w", err)
	}

	span := t.opts.Observer.Start(ctx, "normalize", "records", len(batch.Records))
	normalized := normalizer.Run(batch.Records)
	span.End(nil)

	filter := feed.NewWindowFilter(time.Duration(rules.WindowHours)*time.Hour, normalizer.Location())
	filter.Now = t.opts.Now

	span = t.opts.Observer.Start(ctx, "window_filter", "records", len(normalized))
	kept := filter.Run(normalized)
	span.End(nil, "kept", len(kept))

	span = t.opts.Observer.Start(ctx, "load_batch", "batch_id", batch.ID, "mode", string(t.opts.LoadMode))
	loaded, err := t.repo.LoadBatch(toDatabaseBatch(batch, kept), t.opts.LoadMode)
	span.End(err, "rows", loaded)
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}

	t.Result = IngestResult{
		BatchID:        batch.ID,
		ExtractionDate: batch.ExtractionDate,
		Extracted:      len(batch.Records),
		Loaded:         loaded,
	}

	slog.Info("Task completed",
		"type", "Ingested",
		"batch_id", batch.ID,
		"extraction_date", batch.ExtractionDate.Format(database.ExtractionDateLayout),
		"duration", t.GetDuration(),
		"extracted", len(batch.Records),
		"loaded", loaded)

	return nil
}
