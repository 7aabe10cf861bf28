package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
)

// Column describes one sampled column of an archived run.
type Column struct {
	Name   string
	Raster string
}

// GetRun reads an archived result back.
func (s *Store) GetRun(ctx context.Context, runID string) (domain.ExposureResult, error) {
	var (
		r            domain.ExposureResult
		errKind, msg sql.NullString
		rasters      string
		grid         sql.NullString
		processedAt  string
	)
	err := s.db.QueryRowContext(ctx, `SELECT run_id, request_id, status, error_kind, error, network, rasters, grid, processed_at
		FROM runs WHERE run_id = ?`, runID).
		Scan(&r.RunID, &r.RequestID, &r.Status, &errKind, &msg, &r.Network, &rasters, &grid, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return r, err
	}
	r.ErrorKind, r.Error = errKind.String, msg.String
	if err := json.Unmarshal([]byte(rasters), &r.Rasters); err != nil {
		return r, fmt.Errorf("decode rasters: %w", err)
	}
	if grid.Valid {
		r.Grid = &domain.GridDescriptor{}
		if err := json.Unmarshal([]byte(grid.String), r.Grid); err != nil {
			return r, fmt.Errorf("decode grid: %w", err)
		}
	}
	if r.ProcessedAt, err = time.Parse(time.RFC3339Nano, processedAt); err != nil {
		return r, fmt.Errorf("decode processed_at: %w", err)
	}

	columns, err := s.Columns(ctx, runID)
	if err != nil {
		return r, err
	}
	for _, c := range columns {
		r.Columns = append(r.Columns, c.Name)
	}

	r.Segments, err = s.segments(ctx, runID, len(columns))
	return r, err
}

// Columns lists the sampled columns of a run in table order.
func (s *Store) Columns(ctx context.Context, runID string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, raster FROM run_columns WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Raster); err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (s *Store) segments(ctx context.Context, runID string, width int) ([]domain.SegmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, original_index, geometry, raster_i, raster_j
		FROM segments WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SegmentRecord
	for rows.Next() {
		var (
			seq int
			rec domain.SegmentRecord
		)
		if err := rows.Scan(&seq, &rec.OriginalIndex, &rec.Geometry, &rec.RasterI, &rec.RasterJ); err != nil {
			return nil, err
		}
		rec.Values = make([]*float64, width)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vrows, err := s.db.QueryContext(ctx,
		`SELECT seq, position, value FROM segment_values WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()

	for vrows.Next() {
		var (
			seq, pos int
			value    sql.NullFloat64
		)
		if err := vrows.Scan(&seq, &pos, &value); err != nil {
			return nil, err
		}
		if seq >= len(records) || pos >= width {
			return nil, fmt.Errorf("value (%d, %d) outside run %s", seq, pos, runID)
		}
		if value.Valid {
			v := value.Float64
			records[seq].Values[pos] = &v
		}
	}
	return records, vrows.Err()
}

// RunsForRequest lists the run IDs recorded for a request, oldest first.
func (s *Store) RunsForRequest(ctx context.Context, requestID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM runs WHERE request_id = ? ORDER BY processed_at, run_id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
