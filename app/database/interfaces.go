package database

type RecordRepository interface {
	// LoadBatch writes all rows in one transaction and returns the number inserted.
	LoadBatch(batch Batch, mode LoadMode) (int, error)
	// LatestBatch returns every row sharing the most recent extraction date,
	// or nil when the table is empty.
	LatestBatch() (*Batch, error)

	BatchCount() (int, error)
	RecordCount() (int, error)
}
