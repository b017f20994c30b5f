package feed

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/araddon/dateparse"
	"golang.org/x/text/unicode/norm"

	_ "time/tzdata"
)

const (
	FormattedDateLayout = "2006-01-02 15:04:05"

	// DateparseLayout in a format list hands the value to dateparse.ParseIn.
	DateparseLayout = "dateparse"
)

var escapeReplacer = strings.NewReplacer(
	"\n", "",
	`\\'`, "'",
	`\'`, "'",
)

// Normalizer derives eastern_published, formatted_eastern_published,
// cleaned_title and cleaned_content. Derived fields are always computed from
// the raw ones, so normalizing a record twice gives the same result.
type Normalizer struct {
	location *time.Location
	layouts  []string
	prefixes []string
}

func NewNormalizer(rules *PipelineConfig) (*Normalizer, error) {
	location, err := time.LoadLocation(rules.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", rules.Timezone, err)
	}

	return &Normalizer{
		location: location,
		layouts:  rules.DateFormats,
		prefixes: rules.ContentPrefixes,
	}, nil
}

func (n *Normalizer) Location() *time.Location {
	return n.location
}

func (n *Normalizer) Run(records []Record) []Record {
	normalized := make([]Record, len(records))
	for i, record := range records {
		normalized[i] = n.Normalize(record)
	}
	return normalized
}

func (n *Normalizer) Normalize(record Record) Record {
	record.PublishedAt = n.ParseDate(record.PublishedRaw)
	record.PublishedFormatted = ""
	if record.PublishedAt != nil {
		record.PublishedFormatted = record.PublishedAt.Format(FormattedDateLayout)
	}

	record.CleanedTitle = n.CleanTitle(record.Title)
	record.CleanedContent = n.CleanContent(record.Content)
	return record
}

// ParseDate tries each layout in order and returns the first match in the
// target location, or nil when none match.
func (n *Normalizer) ParseDate(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" || value == UnknownDate {
		return nil
	}

	for _, layout := range n.layouts {
		var (
			parsed time.Time
			err    error
		)
		if layout == DateparseLayout {
			parsed, err = dateparse.ParseIn(value, n.location)
		} else {
			parsed, err = time.Parse(layout, value)
		}
		if err == nil {
			converted := parsed.In(n.location)
			return &converted
		}
	}

	slog.Debug("Unrecognized date format", "value", raw)
	return nil
}

// CleanTitle drops one trailing " - " separator. Feed parsers usually trim
// element text, so the separator may arrive without its final space.
func (n *Normalizer) CleanTitle(title string) string {
	cleaned := escapeReplacer.Replace(title)
	cleaned = strings.TrimRightFunc(cleaned, unicode.IsSpace)
	cleaned = strings.TrimSuffix(cleaned, " -")
	return strings.TrimSpace(norm.NFC.String(cleaned))
}

// CleanContent removes the first configured prefix the content starts with,
// once. Later prefixes are not tried after a match.
func (n *Normalizer) CleanContent(content string) string {
	cleaned := escapeReplacer.Replace(content)
	for _, prefix := range n.prefixes {
		if prefix != "" && strings.HasPrefix(cleaned, prefix) {
			cleaned = cleaned[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(norm.NFC.String(cleaned))
}
