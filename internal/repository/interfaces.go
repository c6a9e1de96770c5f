package repository

import (
	"io"
	"time"

	"trafficcam/internal/models"
)

// CountRepository defines the append-only store for count records.
// There are deliberately no update or delete operations: a record,
// once written, is immutable.
type CountRepository interface {
	// Insert appends one record and returns its row id. Inserting a
	// second record for the same (camera_id, timestamp) pair fails
	// with DuplicateRecordError.
	Insert(rec *models.CountRecord) (int64, error)

	// Query returns records matching the filter in chronological
	// order.
	Query(filter *models.RecordFilter) ([]models.CountRecord, error)

	// Summary aggregates per camera over a time range, optionally
	// restricted to a geographic bounding box.
	Summary(from, to time.Time, box models.BoundingBox) ([]models.SummaryRow, error)

	// ExportCSV writes the whole table as CSV, ordered by camera then
	// timestamp.
	ExportCSV(w io.Writer) error
}
