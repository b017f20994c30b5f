package database

import (
	"time"
)

const ExtractionDateLayout = "2006-01-02"

// RawFeed is one row of the raw_feeds table.
type RawFeed struct {
	ID             int64
	BatchID        string
	Source         string
	ExtractionDate time.Time // date only, stored as YYYY-MM-DD

	Published string // feed value or "Unknown date"
	URL       string
	Author    string
	Title     string
	Content   string

	EasternPublished          *time.Time
	FormattedEasternPublished string
	CleanedTitle              string
	CleanedContent            string
}

type Batch struct {
	ID             string
	ExtractionDate time.Time
	Rows           []RawFeed
}

type LoadMode string

const (
	// LoadModeReplace clears the table before inserting the batch.
	LoadModeReplace LoadMode = "replace"
	LoadModeAppend  LoadMode = "append"
)
