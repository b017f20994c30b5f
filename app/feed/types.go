package feed

import (
	"time"
)

// Feed entry types

// Field is an optional feed value with explicit presence.
type Field struct {
	Value   string
	Present bool
}

func Some(value string) Field {
	return Field{Value: value, Present: true}
}

func None() Field {
	return Field{}
}

// Or returns the value when present, fallback otherwise.
func (f Field) Or(fallback string) string {
	if f.Present {
		return f.Value
	}
	return fallback
}

type RawEntry struct {
	Published Field
	Author    Field
	Link      Field
	Title     Field
	Content   Field
}

// Sentinels for absent feed fields
const (
	UnknownDate   = "Unknown date"
	UnknownAuthor = "Unknown author"
	UnknownLink   = "Unknown link"
	UnknownTitle  = "Unknown title"
)

type Record struct {
	Source         string
	ExtractionDate time.Time

	PublishedRaw       string
	PublishedAt        *time.Time // nil when no configured date format matched
	PublishedFormatted string

	Author  string
	URL     string
	Title   string
	Content string

	CleanedTitle   string
	CleanedContent string
}

type Page struct {
	Title string
	Body  string
}

// Configuration types

type PipelineConfig struct {
	Timezone        string        `yaml:"timezone"`
	WindowHours     int           `yaml:"window_hours"`
	DateFormats     []string      `yaml:"date_formats"`
	ContentPrefixes []string      `yaml:"content_prefixes"`
	Sources         SourceMarkers `yaml:"sources"`
	Feeds           []*Config     `yaml:"feeds"`
}

type SourceMarkers struct {
	Forum         []string `yaml:"forum_markers"`
	TruncatedFeed []string `yaml:"truncated_feed_markers"`
}

type Config struct {
	Name     string         `yaml:"name"`
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled     *bool       `yaml:"enabled"`
	Timeout     int         `yaml:"timeout"` // seconds
	ContentMode ContentMode `yaml:"content_mode"`
}

func (s ConfigSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

func (s ConfigSettings) GetTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

type ContentMode string

const (
	ContentModeParagraphs  ContentMode = "paragraphs"
	ContentModeReadability ContentMode = "readability"
)
