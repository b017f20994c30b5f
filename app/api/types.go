package api

import (
	"net/http"
	"time"

	"github.com/lysyi3m/rss-harvest/app/database"
	"github.com/lysyi3m/rss-harvest/app/feed"
	"github.com/lysyi3m/rss-harvest/app/tasks"
)

type GeneratorInterface interface {
	Run(extractionDate time.Time, records []feed.Record) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	recordRepo  database.RecordRepository
	generator   GeneratorInterface
	configCache *feed.ConfigCache
	scheduler   tasks.TaskSchedulerInterface
	metrics     http.Handler
}

type recordResponse struct {
	URL                       string     `json:"url"`
	Source                    string     `json:"source"`
	Published                 string     `json:"published"`
	EasternPublished          *time.Time `json:"eastern_published"`
	FormattedEasternPublished string     `json:"formatted_eastern_published"`
	Author                    string     `json:"author"`
	Title                     string     `json:"title"`
	CleanedTitle              string     `json:"cleaned_title"`
	CleanedContent            string     `json:"cleaned_content"`
}

func toRecordResponse(record feed.Record) recordResponse {
	return recordResponse{
		URL:                       record.URL,
		Source:                    record.Source,
		Published:                 record.PublishedRaw,
		EasternPublished:          record.PublishedAt,
		FormattedEasternPublished: record.PublishedFormatted,
		Author:                    record.Author,
		Title:                     record.Title,
		CleanedTitle:              record.CleanedTitle,
		CleanedContent:            record.CleanedContent,
	}
}
