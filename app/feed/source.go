package feed

import (
	"strings"
)

type SourceKind int

const (
	SourceDefault SourceKind = iota
	// SourceForum wraps item content in discussion markup; only the first paragraph is kept.
	SourceForum
	// SourceTruncatedFeed ships partial or boilerplate inline content; the page is scraped instead.
	SourceTruncatedFeed
)

func (k SourceKind) String() string {
	switch k {
	case SourceForum:
		return "forum"
	case SourceTruncatedFeed:
		return "truncated_feed"
	default:
		return "default"
	}
}

// Classifier maps URLs to a SourceKind by case-insensitive marker substrings.
// Forum markers win over truncated-feed markers.
type Classifier struct {
	forum         []string
	truncatedFeed []string
}

func NewClassifier(markers SourceMarkers) *Classifier {
	return &Classifier{
		forum:         lowerAll(markers.Forum),
		truncatedFeed: lowerAll(markers.TruncatedFeed),
	}
}

func (c *Classifier) Classify(rawURL string) SourceKind {
	u := strings.ToLower(rawURL)

	if containsAny(u, c.forum) {
		return SourceForum
	}
	if containsAny(u, c.truncatedFeed) {
		return SourceTruncatedFeed
	}
	return SourceDefault
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func lowerAll(values []string) []string {
	lowered := make([]string, 0, len(values))
	for _, v := range values {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(v)))
	}
	return lowered
}
