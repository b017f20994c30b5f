package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"
)

// Generator renders a stored batch as an RSS 2.0 channel.
type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: version,
	}
}

func (g *Generator) Run(extractionDate time.Time, records []Record) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", "RSS Harvest", 4)
	g.writeElement(&buf, "link", g.baseURL, 4)

	description := "No batch extracted yet"
	if !extractionDate.IsZero() {
		description = fmt.Sprintf("Local news extracted on %s", extractionDate.Format("2006-01-02"))
	}
	g.writeElement(&buf, "description", description, 4)

	selfLink := g.baseURL + "/feeds/latest"
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	lastBuildDate := cmp.Or(g.latestPublished(records), extractionDate, time.Now())
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("RSS-Harvest/%s", g.version), 4)

	for _, record := range records {
		g.writeItem(&buf, record)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, record Record) {
	buf.WriteString("    <item>\n")

	link := ""
	if record.URL != UnknownLink {
		link = record.URL
	}

	if link != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(link)))
		xml.EscapeText(buf, []byte(link))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", cmp.Or(record.CleanedTitle, record.Title), 6)
	g.writeElement(buf, "link", link, 6)
	g.writeElement(buf, "description", cmp.Or(record.CleanedContent, "No description available"), 6)

	if record.PublishedAt != nil {
		g.writeElement(buf, "pubDate", record.PublishedAt.Format(time.RFC1123Z), 6)
	}

	if record.Author != "" && record.Author != UnknownAuthor {
		g.writeElement(buf, "author", record.Author, 6)
	}

	if record.Source != "" {
		buf.WriteString(fmt.Sprintf("      <source url=\"%s\">", html.EscapeString(record.Source)))
		xml.EscapeText(buf, []byte(record.Source))
		buf.WriteString("</source>\n")
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) latestPublished(records []Record) time.Time {
	var latest time.Time
	for _, record := range records {
		if record.PublishedAt != nil && record.PublishedAt.After(latest) {
			latest = *record.PublishedAt
		}
	}
	return latest
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
