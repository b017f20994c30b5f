package feed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/rss-harvest/app/observe"
)

type PageFetcher struct {
	fetcher  *Fetcher
	observer observe.Observer
}

func NewPageFetcher(fetcher *Fetcher, observer observe.Observer) *PageFetcher {
	if observer == nil {
		observer = observe.Nop()
	}
	return &PageFetcher{
		fetcher:  fetcher,
		observer: observer,
	}
}

// Fetch scrapes rawURL. It reports false for malformed URLs and for any
// fetch or parse failure; failures are logged, never returned.
func (p *PageFetcher) Fetch(ctx context.Context, rawURL string, kind SourceKind, settings ConfigSettings) (Page, bool) {
	if !IsValidURL(rawURL) {
		slog.Warn("Invalid URL, skipping page extraction", "url", rawURL)
		return Page{}, false
	}

	span := p.observer.Start(ctx, "fetch_page", "url", rawURL, "kind", kind.String())

	data, err := p.fetcher.GetHTML(ctx, rawURL, settings.GetTimeout())
	if err != nil {
		slog.Warn("Failed to fetch page", "url", rawURL, "error", err)
		span.End(err)
		return Page{}, false
	}

	page, err := ParsePage(data, rawURL, kind, settings.ContentMode)
	if err != nil {
		slog.Warn("Failed to parse page", "url", rawURL, "error", err)
		span.End(err)
		return Page{}, false
	}

	span.End(nil, "title_length", len(page.Title), "body_length", len(page.Body))
	return page, true
}

// IsValidURL requires both a scheme and a network location.
func IsValidURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func ParsePage(data []byte, rawURL string, kind SourceKind, mode ContentMode) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := Page{
		Title: pageTitle(doc, kind),
	}

	if mode == ContentModeReadability {
		page.Body = readableText(data, rawURL)
	}
	if page.Body == "" {
		page.Body = paragraphText(doc.Selection)
	}

	return page, nil
}

// Forum pages carry the post title in h1; the document title is site chrome.
func pageTitle(doc *goquery.Document, kind SourceKind) string {
	if kind == SourceForum {
		var header strings.Builder
		doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
			header.WriteString(s.Text())
		})
		return header.String()
	}
	return doc.Find("title").First().Text()
}

func paragraphText(sel *goquery.Selection) string {
	var paragraphs []string
	sel.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, " ")
}

func readableText(data []byte, rawURL string) string {
	pageURL, _ := url.Parse(rawURL)

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		slog.Debug("Readability extraction failed, using paragraphs", "url", rawURL, "error", err)
		return ""
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		slog.Debug("Readability render failed, using paragraphs", "url", rawURL, "error", err)
		return ""
	}
	return collapseWhitespace(buf.String())
}

// FirstParagraph returns the text of the first <p> in an HTML fragment.
func FirstParagraph(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return doc.Find("p").First().Text()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
