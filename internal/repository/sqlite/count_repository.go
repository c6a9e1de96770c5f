package sqlite

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"

	"trafficcam/internal/errs"
	"trafficcam/internal/models"
)

// CountRepository implements repository.CountRepository for SQLite.
type CountRepository struct {
	db *DB
}

// NewCountRepository creates a new SQLite count repository.
func NewCountRepository(db *DB) *CountRepository {
	return &CountRepository{db: db}
}

// Insert appends a new count record. A second record for the same
// (camera_id, timestamp) trips the UNIQUE constraint and is surfaced
// as DuplicateRecordError.
func (r *CountRepository) Insert(rec *models.CountRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO count_records (camera_id, timestamp, vehicle_count, latitude, longitude, density, jam, is_weekday, is_peak)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.CameraID, rec.Timestamp.UTC(), rec.VehicleCount, rec.Latitude, rec.Longitude,
		rec.Density, boolToInt(rec.Jam), boolToInt(rec.IsWeekday), boolToInt(rec.IsPeak))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, &errs.DuplicateRecordError{CameraID: rec.CameraID, Timestamp: rec.Timestamp}
		}
		return 0, fmt.Errorf("failed to insert count record: %w", err)
	}

	return result.LastInsertId()
}

// Query returns records matching the filter in chronological order.
func (r *CountRepository) Query(filter *models.RecordFilter) ([]models.CountRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, camera_id, timestamp, vehicle_count, latitude, longitude, density, jam, is_weekday, is_peak
		FROM count_records WHERE 1=1`
	var args []interface{}

	if filter.CameraID != "" {
		query += ` AND camera_id = ?`
		args = append(args, filter.CameraID)
	}
	if !filter.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, filter.To.UTC())
	}

	query += ` ORDER BY timestamp ASC, camera_id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query count records: %w", err)
	}
	defer rows.Close()

	var records []models.CountRecord
	for rows.Next() {
		var rec models.CountRecord
		var jam, weekday, peak int
		if err := rows.Scan(&rec.ID, &rec.CameraID, &rec.Timestamp, &rec.VehicleCount,
			&rec.Latitude, &rec.Longitude, &rec.Density, &jam, &weekday, &peak); err != nil {
			return nil, fmt.Errorf("failed to scan count record: %w", err)
		}
		rec.Jam = jam != 0
		rec.IsWeekday = weekday != 0
		rec.IsPeak = peak != 0
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Summary aggregates per camera over a time range. An empty result is
// a valid answer, not an error.
func (r *CountRepository) Summary(from, to time.Time, box models.BoundingBox) ([]models.SummaryRow, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT camera_id, latitude, longitude,
		       COUNT(*), SUM(vehicle_count), AVG(vehicle_count), MAX(vehicle_count), SUM(jam)
		FROM count_records WHERE 1=1`
	var args []interface{}

	if !from.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, to.UTC())
	}
	if !box.IsZero() {
		query += ` AND latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?`
		args = append(args, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	}

	query += ` GROUP BY camera_id ORDER BY camera_id ASC`

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	var summary []models.SummaryRow
	for rows.Next() {
		var row models.SummaryRow
		if err := rows.Scan(&row.CameraID, &row.Latitude, &row.Longitude,
			&row.Records, &row.Total, &row.Mean, &row.Max, &row.JamCount); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary = append(summary, row)
	}

	return summary, rows.Err()
}

// ExportCSV writes the whole table as CSV ordered by camera then
// timestamp, matching the flat tabular layout of the original store.
func (r *CountRepository) ExportCSV(w io.Writer) error {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT camera_id, timestamp, vehicle_count, latitude, longitude, density, jam, is_weekday, is_peak
		FROM count_records ORDER BY camera_id ASC, timestamp ASC`)
	if err != nil {
		return fmt.Errorf("failed to query count records: %w", err)
	}
	defer rows.Close()

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"camera_id", "timestamp", "vehicle_count", "latitude", "longitude", "density", "jam", "is_weekday", "is_peak"}); err != nil {
		return err
	}

	for rows.Next() {
		var rec models.CountRecord
		var jam, weekday, peak int
		if err := rows.Scan(&rec.CameraID, &rec.Timestamp, &rec.VehicleCount,
			&rec.Latitude, &rec.Longitude, &rec.Density, &jam, &weekday, &peak); err != nil {
			return fmt.Errorf("failed to scan count record: %w", err)
		}

		record := []string{
			rec.CameraID,
			rec.Timestamp.UTC().Format(time.RFC3339),
			strconv.Itoa(rec.VehicleCount),
			strconv.FormatFloat(rec.Latitude, 'f', -1, 64),
			strconv.FormatFloat(rec.Longitude, 'f', -1, 64),
			strconv.FormatFloat(rec.Density, 'f', -1, 64),
			strconv.Itoa(jam),
			strconv.Itoa(weekday),
			strconv.Itoa(peak),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
