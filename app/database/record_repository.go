package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ RecordRepository = (*recordRepository)(nil)

type recordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) LoadBatch(batch Batch, mode LoadMode) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	switch mode {
	case LoadModeReplace:
		if _, err := tx.Exec(`DELETE FROM raw_feeds`); err != nil {
			return 0, fmt.Errorf("failed to clear raw_feeds: %w", err)
		}
	case LoadModeAppend:
	default:
		return 0, fmt.Errorf("unknown load mode: %s", mode)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO raw_feeds (
			batch_id, source, extraction_date, published, url, author, title, content,
			eastern_published, formatted_eastern_published, cleaned_title, cleaned_content
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	extractionDate := batch.ExtractionDate.Format(ExtractionDateLayout)

	for _, row := range batch.Rows {
		var easternPublished sql.NullString
		if row.EasternPublished != nil {
			easternPublished = sql.NullString{String: row.EasternPublished.Format(time.RFC3339), Valid: true}
		}

		_, err := stmt.Exec(
			batch.ID, row.Source, extractionDate, row.Published, row.URL, row.Author, row.Title, row.Content,
			easternPublished, row.FormattedEasternPublished, row.CleanedTitle, row.CleanedContent,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert row for %s: %w", row.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}

	return len(batch.Rows), nil
}

func (r *recordRepository) LatestBatch() (*Batch, error) {
	rows, err := r.db.Query(`
		SELECT id, batch_id, source, extraction_date, published, url, author, title, content,
			eastern_published, formatted_eastern_published, cleaned_title, cleaned_content
		FROM raw_feeds
		WHERE extraction_date = (SELECT MAX(extraction_date) FROM raw_feeds)
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest batch: %w", err)
	}
	defer rows.Close()

	var batch *Batch
	for rows.Next() {
		row, err := r.scanRawFeed(rows)
		if err != nil {
			return nil, err
		}

		if batch == nil {
			batch = &Batch{ID: row.BatchID, ExtractionDate: row.ExtractionDate}
		}
		batch.Rows = append(batch.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate latest batch: %w", err)
	}

	return batch, nil
}

func (r *recordRepository) BatchCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(DISTINCT batch_id) FROM raw_feeds`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}
	return count, nil
}

func (r *recordRepository) RecordCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM raw_feeds`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (r *recordRepository) scanRawFeed(rows *sql.Rows) (RawFeed, error) {
	var (
		row              RawFeed
		extractionDate   string
		easternPublished sql.NullString
	)

	err := rows.Scan(
		&row.ID, &row.BatchID, &row.Source, &extractionDate, &row.Published, &row.URL, &row.Author, &row.Title, &row.Content,
		&easternPublished, &row.FormattedEasternPublished, &row.CleanedTitle, &row.CleanedContent,
	)
	if err != nil {
		return RawFeed{}, fmt.Errorf("failed to scan row: %w", err)
	}

	row.ExtractionDate, err = time.Parse(ExtractionDateLayout, extractionDate)
	if err != nil {
		return RawFeed{}, fmt.Errorf("failed to parse extraction date %q: %w", extractionDate, err)
	}

	if easternPublished.Valid {
		published, err := time.Parse(time.RFC3339, easternPublished.String)
		if err != nil {
			return RawFeed{}, fmt.Errorf("failed to parse eastern_published %q: %w", easternPublished.String, err)
		}
		row.EasternPublished = &published
	}

	return row, nil
}
