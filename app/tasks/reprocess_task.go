package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/lysyi3m/rss-harvest/app/database"
	"github.com/lysyi3m/rss-harvest/app/feed"
	"github.com/lysyi3m/rss-harvest/app/observe"
)

// ContentLine is one enrichment input row, emitted in batch order.
type ContentLine struct {
	URL            string `json:"url"`
	CleanedTitle   string `json:"cleaned_title"`
	CleanedContent string `json:"cleaned_content"`
}

// ReprocessTask re-normalizes the most recent stored batch with the current
// rules and writes its complete records as JSON lines.
type ReprocessTask struct {
	Task
	configCache *feed.ConfigCache
	repo        database.RecordRepository
	out         io.Writer
	observer    observe.Observer

	Written int
}

func NewReprocessTask(configCache *feed.ConfigCache, repo database.RecordRepository, out io.Writer, observer observe.Observer) *ReprocessTask {
	if observer == nil {
		observer = observe.Nop()
	}
	return &ReprocessTask{
		Task:        NewTask(TaskTypeReprocess, ""),
		configCache: configCache,
		repo:        repo,
		out:         out,
		observer:    observer,
	}
}

func (t *ReprocessTask) Execute(ctx context.Context) error {
	span := t.observer.Start(ctx, "reprocess")

	batch, err := LatestNormalizedBatch(t.repo, t.configCache.Rules())
	if err != nil {
		span.End(err)
		return err
	}
	if batch == nil {
		slog.Warn("No stored batch to reprocess")
		span.End(nil, "records", 0)
		return nil
	}

	complete := CompleteRecords(batch.Records)

	encoder := json.NewEncoder(t.out)
	for _, record := range complete {
		line := ContentLine{
			URL:            record.URL,
			CleanedTitle:   record.CleanedTitle,
			CleanedContent: record.CleanedContent,
		}
		if err := encoder.Encode(line); err != nil {
			span.End(err)
			return fmt.Errorf("failed to write record: %w", err)
		}
		t.Written++
	}

	span.End(nil, "records", t.Written)

	slog.Info("Task completed",
		"type", "Reprocessed",
		"batch_id", batch.ID,
		"duration", t.GetDuration(),
		"stored", len(batch.Records),
		"written", t.Written)

	return nil
}

// LatestNormalizedBatch loads the most recent batch and recomputes its derived
// fields. It returns nil when nothing has been stored yet.
func LatestNormalizedBatch(repo database.RecordRepository, rules *feed.PipelineConfig) (*Batch, error) {
	stored, err := repo.LatestBatch()
	if err != nil {
		return nil, fmt.Errorf("failed to load latest batch: %w", err)
	}
	if stored == nil {
		return nil, nil
	}

	normalizer, err := feed.NewNormalizer(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to create normalizer: %w", err)
	}

	batch := fromDatabaseBatch(stored)
	batch.Records = normalizer.Run(batch.Records)
	return &batch, nil
}

// CompleteRecords drops records whose cleaned content is empty.
func CompleteRecords(records []feed.Record) []feed.Record {
	return feed.NewWindowFilter(0, nil).Complete(records)
}
