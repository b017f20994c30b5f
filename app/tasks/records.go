package tasks

import (
	"github.com/lysyi3m/rss-harvest/app/database"
	"github.com/lysyi3m/rss-harvest/app/feed"
)

func toDatabaseBatch(batch Batch, records []feed.Record) database.Batch {
	rows := make([]database.RawFeed, 0, len(records))
	for _, record := range records {
		rows = append(rows, database.RawFeed{
			BatchID:                   batch.ID,
			Source:                    record.Source,
			ExtractionDate:            batch.ExtractionDate,
			Published:                 record.PublishedRaw,
			URL:                       record.URL,
			Author:                    record.Author,
			Title:                     record.Title,
			Content:                   record.Content,
			EasternPublished:          record.PublishedAt,
			FormattedEasternPublished: record.PublishedFormatted,
			CleanedTitle:              record.CleanedTitle,
			CleanedContent:            record.CleanedContent,
		})
	}

	return database.Batch{
		ID:             batch.ID,
		ExtractionDate: batch.ExtractionDate,
		Rows:           rows,
	}
}

// fromDatabaseBatch keeps only the raw columns; derived ones are recomputed
// by the normalizer.
func fromDatabaseBatch(stored *database.Batch) Batch {
	records := make([]feed.Record, 0, len(stored.Rows))
	for _, row := range stored.Rows {
		records = append(records, feed.Record{
			Source:         row.Source,
			ExtractionDate: row.ExtractionDate,
			PublishedRaw:   row.Published,
			Author:         row.Author,
			URL:            row.URL,
			Title:          row.Title,
			Content:        row.Content,
		})
	}

	return Batch{
		ID:             stored.ID,
		ExtractionDate: stored.ExtractionDate,
		Records:        records,
	}
}
