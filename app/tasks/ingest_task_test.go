package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/rss-harvest/app/database"
	"github.com/lysyi3m/rss-harvest/app/feed"
	"github.com/lysyi3m/rss-harvest/app/observe"
)

func serveFeed(t *testing.T, body string) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func unreachableURL() string {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()
	return url
}

func writePipeline(t *testing.T, feedURLs ...string) *feed.ConfigCache {
	t.Helper()

	var b strings.Builder
	b.WriteString("feeds:\n")
	for i, url := range feedURLs {
		fmt.Fprintf(&b, "  - name: feed-%d\n    url: %q\n    settings:\n      timeout: 2\n", i+1, url)
	}

	path := filepath.Join(t.TempDir(), "pipeline.yml")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}

	configCache := feed.NewConfigCache(path)
	if err := configCache.Run(); err != nil {
		t.Fatalf("Failed to load pipeline config: %v", err)
	}
	return configCache
}

func newTestIngestTask(configCache *feed.ConfigCache, repo database.RecordRepository, observer observe.Observer) *IngestTask {
	fetcher := feed.NewFetcher(nil, "RSS Harvest/test", 2*time.Second)
	return NewIngestTask(
		configCache,
		feed.NewFeedFetcher(fetcher, feed.NewParser(), observer),
		feed.NewPageFetcher(fetcher, observer),
		repo,
		IngestOptions{WorkerCount: 3, Observer: observer},
	)
}

func TestIngestTaskEndToEnd(t *testing.T) {
	undated := serveFeed(t, `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Undated</title>
    <link>https://www.wral.com</link>
    <item>
      <title>No date one</title>
      <link>https://www.wral.com/story/1</link>
      <content:encoded>Body one</content:encoded>
    </item>
    <item>
      <title>No date two</title>
      <link>https://www.wral.com/story/2</link>
      <content:encoded>Body two</content:encoded>
    </item>
  </channel>
</rss>`)

	recent := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC1123Z)
	current := serveFeed(t, `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Current</title>
    <link>https://www.newsobserver.com</link>
    <item>
      <title>Fresh story - </title>
      <link>https://www.newsobserver.com/news/local/fresh</link>
      <pubDate>`+recent+`</pubDate>
      <author>reporter@example.com (Reporter)</author>
      <content:encoded>Durham council met on Tuesday.</content:encoded>
    </item>
  </channel>
</rss>`)

	configCache := writePipeline(t, unreachableURL(), undated, current)
	repo := &mockRecordRepository{}
	recorder := observe.NewRecorder()

	task := newTestIngestTask(configCache, repo, recorder)
	task.Start()
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected run to succeed despite an unreachable feed, got: %v", err)
	}

	if task.Result.Extracted != 3 {
		t.Errorf("Expected 3 extracted records, got %d", task.Result.Extracted)
	}
	if task.Result.Loaded != 1 {
		t.Errorf("Expected 1 loaded record, got %d", task.Result.Loaded)
	}

	if len(repo.loaded) != 1 {
		t.Fatalf("Expected one batch load, got %d", len(repo.loaded))
	}
	if repo.modes[0] != database.LoadModeReplace {
		t.Errorf("Expected replace mode by default, got %s", repo.modes[0])
	}

	batch := repo.loaded[0]
	if len(batch.Rows) != 1 {
		t.Fatalf("Expected exactly one row, got %d", len(batch.Rows))
	}

	row := batch.Rows[0]
	if row.URL != "https://www.newsobserver.com/news/local/fresh" {
		t.Errorf("Unexpected URL: %s", row.URL)
	}
	if row.CleanedTitle != "Fresh story" {
		t.Errorf("Unexpected cleaned title: %q", row.CleanedTitle)
	}
	if row.CleanedContent != "Durham council met on Tuesday." {
		t.Errorf("Unexpected cleaned content: %q", row.CleanedContent)
	}
	if row.Author != "reporter@example.com (Reporter)" {
		t.Errorf("Unexpected author: %s", row.Author)
	}
	if row.EasternPublished == nil || row.FormattedEasternPublished == "" {
		t.Error("Expected parsed published date")
	}
	if row.Source != current {
		t.Errorf("Expected source %s, got %s", current, row.Source)
	}
	if row.BatchID != batch.ID || batch.ID != task.Result.BatchID {
		t.Errorf("Batch IDs disagree: row %s, batch %s, result %s", row.BatchID, batch.ID, task.Result.BatchID)
	}

	failed := 0
	for _, span := range recorder.Find("fetch_feed") {
		if span.Err != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("Expected one failed feed fetch, got %d", failed)
	}
	if spans := recorder.Find("load_batch"); len(spans) != 1 || spans[0].Err != nil {
		t.Errorf("Expected one successful load_batch span, got %+v", spans)
	}
}

func TestIngestTaskStorageFailure(t *testing.T) {
	configCache := writePipeline(t, unreachableURL())
	repo := &mockRecordRepository{loadErr: errors.New("disk full")}

	task := newTestIngestTask(configCache, repo, nil)
	err := task.Execute(context.Background())

	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected storage error to propagate, got: %v", err)
	}
}

func TestIngestTaskAppendMode(t *testing.T) {
	configCache := writePipeline(t, unreachableURL())
	repo := &mockRecordRepository{}

	fetcher := feed.NewFetcher(nil, "test", time.Second)
	task := NewIngestTask(configCache, feed.NewFeedFetcher(fetcher, feed.NewParser(), nil), feed.NewPageFetcher(fetcher, nil), repo,
		IngestOptions{WorkerCount: 1, LoadMode: database.LoadModeAppend})

	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(repo.modes) != 1 || repo.modes[0] != database.LoadModeAppend {
		t.Errorf("Expected append mode, got %v", repo.modes)
	}
	if len(repo.loaded[0].Rows) != 0 {
		t.Errorf("Expected empty batch, got %d rows", len(repo.loaded[0].Rows))
	}
}

func TestIngestTaskCancelled(t *testing.T) {
	configCache := writePipeline(t, unreachableURL())
	repo := &mockRecordRepository{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := newTestIngestTask(configCache, repo, nil)
	if err := task.Execute(ctx); err == nil {
		t.Error("Expected error for a cancelled run")
	}
	if len(repo.loaded) != 0 {
		t.Error("Expected nothing to be loaded after cancellation")
	}
}
