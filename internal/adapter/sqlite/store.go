// Package sqlite archives exposure results in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a run is not in the archive.
var ErrNotFound = errors.New("run not found")

// Store is a result archive. It implements pipeline.BatchLoader.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database at path and applies pending migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m is not closed: that would close db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadBatch saves every result.
func (s *Store) LoadBatch(ctx context.Context, results []domain.ExposureResult) error {
	for i := range results {
		if err := s.SaveResult(ctx, results[i]); err != nil {
			return err
		}
	}
	return nil
}

// SaveResult stores one result in a single transaction. Saving a run again
// replaces it.
func (s *Store) SaveResult(ctx context.Context, r domain.ExposureResult) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteRun(ctx, tx, r.RunID); err != nil {
		return err
	}

	rasters, err := json.Marshal(r.Rasters)
	if err != nil {
		return err
	}
	var grid sql.NullString
	if r.Grid != nil {
		data, err := json.Marshal(r.Grid)
		if err != nil {
			return err
		}
		grid = sql.NullString{String: string(data), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, request_id, status, error_kind, error, network, rasters, grid, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.RequestID, r.Status, nullString(r.ErrorKind), nullString(r.Error),
		r.Network, string(rasters), grid, r.ProcessedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}

	for pos, name := range r.Columns {
		if pos >= len(r.Rasters) {
			return fmt.Errorf("run %s: column %s has no raster", r.RunID, name)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_columns (run_id, position, name, raster) VALUES (?, ?, ?, ?)`,
			r.RunID, pos, name, r.Rasters[pos],
		); err != nil {
			return fmt.Errorf("insert column %s: %w", name, err)
		}
	}

	if err = insertSegments(ctx, tx, r); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", r.RunID, err)
	}
	s.logger.Debug("result archived", "run_id", r.RunID, "request_id", r.RequestID, "segments", len(r.Segments))
	return nil
}

func insertSegments(ctx context.Context, tx *sql.Tx, r domain.ExposureResult) error {
	segStmt, err := tx.PrepareContext(ctx, `INSERT INTO segments
		(run_id, seq, original_index, geometry, raster_i, raster_j) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer segStmt.Close()

	valStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segment_values (run_id, seq, position, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer valStmt.Close()

	for seq, seg := range r.Segments {
		if _, err := segStmt.ExecContext(ctx, r.RunID, seq, seg.OriginalIndex, seg.Geometry, seg.RasterI, seg.RasterJ); err != nil {
			return fmt.Errorf("insert segment %d: %w", seq, err)
		}
		for pos, v := range seg.Values {
			var value sql.NullFloat64
			if v != nil {
				value = sql.NullFloat64{Float64: *v, Valid: true}
			}
			if _, err := valStmt.ExecContext(ctx, r.RunID, seq, pos, value); err != nil {
				return fmt.Errorf("insert value %d/%d: %w", seq, pos, err)
			}
		}
	}
	return nil
}

func deleteRun(ctx context.Context, tx *sql.Tx, runID string) error {
	for _, table := range []string{"segment_values", "segments", "run_columns", "runs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
