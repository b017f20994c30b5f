package feed

import (
	"context"
	"testing"
	"time"
)

type mockPageSource struct {
	page  Page
	ok    bool
	calls []string
}

func (m *mockPageSource) Fetch(ctx context.Context, rawURL string, kind SourceKind, settings ConfigSettings) (Page, bool) {
	m.calls = append(m.calls, rawURL)
	return m.page, m.ok
}

func newTestExtractor(pages PageSource) *Extractor {
	classifier := NewClassifier(SourceMarkers{
		Forum:         DefaultForumMarkers,
		TruncatedFeed: DefaultTruncatedFeedMarkers,
	})
	return NewExtractor(pages, classifier, nil)
}

var (
	testSource         = &Config{Name: "test", URL: "https://example.com/feed"}
	testExtractionDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func TestExtractorAllFieldsPresent(t *testing.T) {
	pages := &mockPageSource{}
	extractor := newTestExtractor(pages)

	entry := RawEntry{
		Published: Some("Fri, 01 Mar 2024 09:00:00 -0500"),
		Author:    Some("Jane Doe"),
		Link:      Some("https://www.wral.com/story/1"),
		Title:     Some("Story"),
		Content:   Some("<p>inline</p>"),
	}

	record := extractor.Run(context.Background(), entry, testSource, testExtractionDate)

	if record.PublishedRaw != "Fri, 01 Mar 2024 09:00:00 -0500" {
		t.Errorf("Unexpected published: %s", record.PublishedRaw)
	}
	if record.Author != "Jane Doe" {
		t.Errorf("Unexpected author: %s", record.Author)
	}
	if record.URL != "https://www.wral.com/story/1" {
		t.Errorf("Unexpected URL: %s", record.URL)
	}
	if record.Title != "Story" {
		t.Errorf("Unexpected title: %s", record.Title)
	}
	if record.Content != "<p>inline</p>" {
		t.Errorf("Expected inline content verbatim, got: %s", record.Content)
	}
	if record.Source != testSource.URL {
		t.Errorf("Expected source %s, got: %s", testSource.URL, record.Source)
	}
	if !record.ExtractionDate.Equal(testExtractionDate) {
		t.Errorf("Unexpected extraction date: %s", record.ExtractionDate)
	}
	if len(pages.calls) != 0 {
		t.Errorf("Expected no page fetch, got: %v", pages.calls)
	}
}

func TestExtractorSentinels(t *testing.T) {
	pages := &mockPageSource{ok: false}
	extractor := newTestExtractor(pages)

	record := extractor.Run(context.Background(), RawEntry{}, testSource, testExtractionDate)

	if record.PublishedRaw != UnknownDate {
		t.Errorf("Expected %q, got: %s", UnknownDate, record.PublishedRaw)
	}
	if record.Author != UnknownAuthor {
		t.Errorf("Expected %q, got: %s", UnknownAuthor, record.Author)
	}
	if record.URL != UnknownLink {
		t.Errorf("Expected %q, got: %s", UnknownLink, record.URL)
	}
	if record.Title != UnknownTitle {
		t.Errorf("Expected %q, got: %s", UnknownTitle, record.Title)
	}
	if record.Content != "" {
		t.Errorf("Expected empty content, got: %s", record.Content)
	}
}

func TestExtractorTitleFromPage(t *testing.T) {
	pages := &mockPageSource{page: Page{Title: "Scraped title", Body: "scraped body"}, ok: true}
	extractor := newTestExtractor(pages)

	entry := RawEntry{Link: Some("https://www.wral.com/story/2")}
	record := extractor.Run(context.Background(), entry, testSource, testExtractionDate)

	if record.Title != "Scraped title" {
		t.Errorf("Expected scraped title, got: %s", record.Title)
	}
	if record.Content != "scraped body" {
		t.Errorf("Expected scraped body, got: %s", record.Content)
	}
	if len(pages.calls) != 1 {
		t.Errorf("Expected exactly one page fetch for title and content, got: %d", len(pages.calls))
	}
}

func TestExtractorEmptyPageTitleFallsBack(t *testing.T) {
	pages := &mockPageSource{page: Page{Title: "  ", Body: ""}, ok: true}
	extractor := newTestExtractor(pages)

	record := extractor.Run(context.Background(), RawEntry{Link: Some("https://example.com/x")}, testSource, testExtractionDate)

	if record.Title != UnknownTitle {
		t.Errorf("Expected %q, got: %s", UnknownTitle, record.Title)
	}
}

func TestExtractorForumInlineContent(t *testing.T) {
	pages := &mockPageSource{page: Page{Body: "should not be used"}, ok: true}
	extractor := newTestExtractor(pages)

	entry := RawEntry{
		Link:    Some("https://www.reddit.com/r/raleigh/comments/1"),
		Title:   Some("Forum post"),
		Content: Some("<p>first</p><p>second</p>"),
	}
	record := extractor.Run(context.Background(), entry, testSource, testExtractionDate)

	if record.Content != "first" {
		t.Errorf("Expected first paragraph, got: %q", record.Content)
	}
	if len(pages.calls) != 0 {
		t.Errorf("Expected no page fetch, got: %v", pages.calls)
	}
}

func TestExtractorForumInlineWithoutParagraphs(t *testing.T) {
	extractor := newTestExtractor(&mockPageSource{})

	entry := RawEntry{
		Link:    Some("https://www.reddit.com/r/bullcity/comments/2"),
		Title:   Some("Link post"),
		Content: Some(`<a href="https://example.com">[link]</a>`),
	}
	record := extractor.Run(context.Background(), entry, testSource, testExtractionDate)

	if record.Content != "" {
		t.Errorf("Expected empty content, got: %q", record.Content)
	}
}

func TestExtractorTruncatedFeedScrapesPage(t *testing.T) {
	pages := &mockPageSource{page: Page{Body: "full article"}, ok: true}
	extractor := newTestExtractor(pages)

	entry := RawEntry{
		Link:    Some("https://abc11.com/story/3"),
		Title:   Some("Truncated"),
		Content: Some("Read more..."),
	}
	record := extractor.Run(context.Background(), entry, testSource, testExtractionDate)

	if record.Content != "full article" {
		t.Errorf("Expected scraped body, got: %q", record.Content)
	}
	if len(pages.calls) != 1 || pages.calls[0] != "https://abc11.com/story/3" {
		t.Errorf("Expected one fetch of the entry link, got: %v", pages.calls)
	}
}

func TestExtractorTruncatedFeedScrapeFails(t *testing.T) {
	extractor := newTestExtractor(&mockPageSource{ok: false})

	entry := RawEntry{
		Link:    Some("https://abc11.com/story/4"),
		Title:   Some("Truncated"),
		Content: Some("Read more..."),
	}
	record := extractor.Run(context.Background(), entry, testSource, testExtractionDate)

	if record.Content != "" {
		t.Errorf("Expected empty content, got: %q", record.Content)
	}
}

func TestExtractorForumWithoutInlineContentScrapes(t *testing.T) {
	pages := &mockPageSource{page: Page{Body: "scraped forum body"}, ok: true}
	extractor := newTestExtractor(pages)

	entry := RawEntry{
		Link:  Some("https://www.reddit.com/r/chapelhill/comments/5"),
		Title: Some("No content"),
	}
	record := extractor.Run(context.Background(), entry, testSource, testExtractionDate)

	if record.Content != "scraped forum body" {
		t.Errorf("Expected scraped body, got: %q", record.Content)
	}
}
