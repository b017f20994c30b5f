package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/rss-harvest/app/database"
	"github.com/lysyi3m/rss-harvest/app/feed"
)

type mockRecordRepository struct {
	mu      sync.Mutex
	loaded  []database.Batch
	modes   []database.LoadMode
	latest  *database.Batch
	loadErr error
}

func (m *mockRecordRepository) LoadBatch(batch database.Batch, mode database.LoadMode) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return 0, m.loadErr
	}
	m.loaded = append(m.loaded, batch)
	m.modes = append(m.modes, mode)
	return len(batch.Rows), nil
}

func (m *mockRecordRepository) LatestBatch() (*database.Batch, error) {
	return m.latest, nil
}

func (m *mockRecordRepository) BatchCount() (int, error) {
	return len(m.loaded), nil
}

func (m *mockRecordRepository) RecordCount() (int, error) {
	count := 0
	for _, batch := range m.loaded {
		count += len(batch.Rows)
	}
	return count, nil
}

type mockFeedSource struct {
	mu      sync.Mutex
	entries map[string][]feed.RawEntry
	delay   time.Duration
	active  int
	peak    int
	calls   []string
}

func (m *mockFeedSource) Run(ctx context.Context, feedURL string, timeout time.Duration) []feed.RawEntry {
	m.mu.Lock()
	m.calls = append(m.calls, feedURL)
	m.active++
	m.peak = max(m.peak, m.active)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
		}
	}

	m.mu.Lock()
	m.active--
	m.mu.Unlock()

	return m.entries[feedURL]
}

type mockExtractor struct{}

func (mockExtractor) Run(ctx context.Context, entry feed.RawEntry, source *feed.Config, extractionDate time.Time) feed.Record {
	return feed.Record{
		Source:         source.URL,
		ExtractionDate: extractionDate,
		URL:            entry.Link.Or(feed.UnknownLink),
		Title:          entry.Title.Or(feed.UnknownTitle),
	}
}
