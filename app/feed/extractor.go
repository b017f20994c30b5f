package feed

import (
	"context"
	"strings"
	"time"

	"github.com/lysyi3m/rss-harvest/app/observe"
)

type PageSource interface {
	Fetch(ctx context.Context, rawURL string, kind SourceKind, settings ConfigSettings) (Page, bool)
}

// Extractor builds a pre-normalization Record from one feed entry, scraping
// the linked page when the feed leaves the title or content out.
type Extractor struct {
	pages      PageSource
	classifier *Classifier
	observer   observe.Observer
}

func NewExtractor(pages PageSource, classifier *Classifier, observer observe.Observer) *Extractor {
	if observer == nil {
		observer = observe.Nop()
	}
	return &Extractor{
		pages:      pages,
		classifier: classifier,
		observer:   observer,
	}
}

func (e *Extractor) Run(ctx context.Context, entry RawEntry, source *Config, extractionDate time.Time) Record {
	link := entry.Link.Or(UnknownLink)
	kind := e.classifier.Classify(link)

	span := e.observer.Start(ctx, "extract_entry", "url", link, "kind", kind.String())

	var (
		page    Page
		fetched bool
		ok      bool
	)
	scrape := func() (Page, bool) {
		if !fetched {
			page, ok = e.pages.Fetch(ctx, link, kind, source.Settings)
			fetched = true
		}
		return page, ok
	}

	record := Record{
		Source:         source.URL,
		ExtractionDate: extractionDate,
		PublishedRaw:   entry.Published.Or(UnknownDate),
		Author:         entry.Author.Or(UnknownAuthor),
		URL:            link,
		Title:          e.title(entry, scrape),
		Content:        e.content(entry, kind, scrape),
	}

	span.End(nil, "scraped", fetched)
	return record
}

func (e *Extractor) title(entry RawEntry, scrape func() (Page, bool)) string {
	if entry.Title.Present {
		return entry.Title.Value
	}
	if page, ok := scrape(); ok && strings.TrimSpace(page.Title) != "" {
		return page.Title
	}
	return UnknownTitle
}

func (e *Extractor) content(entry RawEntry, kind SourceKind, scrape func() (Page, bool)) string {
	switch {
	case entry.Content.Present && kind == SourceForum:
		return FirstParagraph(entry.Content.Value)
	case !entry.Content.Present || kind == SourceTruncatedFeed:
		if page, ok := scrape(); ok {
			return page.Body
		}
		return ""
	default:
		return entry.Content.Value
	}
}
