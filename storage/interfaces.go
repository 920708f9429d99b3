package storage

import "property-analytics/models"

// SnapshotWriter is the interface any enriched-snapshot backend must satisfy.
type SnapshotWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}

var (
	_ SnapshotWriter = (*CSVWriter)(nil)
	_ SnapshotWriter = (*PostgresWriter)(nil)
)
