package feed

import (
	"time"
)

// WindowFilter keeps recent, non-empty records. Filters return new slices
// and preserve input order.
type WindowFilter struct {
	window   time.Duration
	location *time.Location
	Now      func() time.Time
}

func NewWindowFilter(window time.Duration, location *time.Location) *WindowFilter {
	return &WindowFilter{
		window:   window,
		location: location,
		Now:      time.Now,
	}
}

func (f *WindowFilter) Run(records []Record) []Record {
	return f.Complete(f.Recent(records))
}

// Recent keeps records published within [now-window, now]. Records without a
// parsed date never qualify.
func (f *WindowFilter) Recent(records []Record) []Record {
	now := f.Now().In(f.location)
	start := now.Add(-f.window)

	recent := make([]Record, 0, len(records))
	for _, record := range records {
		if record.PublishedAt == nil {
			continue
		}
		published := *record.PublishedAt
		if published.Before(start) || published.After(now) {
			continue
		}
		recent = append(recent, record)
	}
	return recent
}

func (f *WindowFilter) Complete(records []Record) []Record {
	complete := make([]Record, 0, len(records))
	for _, record := range records {
		if record.CleanedContent != "" {
			complete = append(complete, record)
		}
	}
	return complete
}
