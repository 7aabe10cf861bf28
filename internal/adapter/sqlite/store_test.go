package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.db")
	s, err := Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func ptr(v float64) *float64 { return &v }

func completedResult() domain.ExposureResult {
	grid := domain.GridDescriptor{Width: 2, Height: 2, Transform: domain.NorthUp(0, 2, 1)}
	return domain.ExposureResult{
		RequestID: "req-1",
		RunID:     "run-1",
		Status:    domain.StatusCompleted,
		Network:   "roads.geojson",
		Rasters:   []string{"flood_rp0010_5.asc", "depth.asc"},
		Grid:      &grid,
		Columns:   []string{"flood_rp0010_5", "depth"},
		Segments: []domain.SegmentRecord{
			{OriginalIndex: 0, Geometry: "LINESTRING(0.5 0.5,1 0.5)", RasterI: 0, RasterJ: 1, Values: []*float64{ptr(5), nil}},
			{OriginalIndex: 0, Geometry: "LINESTRING(1 0.5,1.5 0.5)", RasterI: 1, RasterJ: 1, Values: []*float64{nil, ptr(0.25)}},
		},
		ProcessedAt: time.Date(2024, time.April, 26, 15, 10, 0, 123, time.UTC),
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	want := completedResult()

	require.NoError(t, s.SaveResult(ctx, want))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("archived run mismatch (-want +got):\n%s", diff)
	}

	columns, err := s.Columns(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []Column{{Name: "flood_rp0010_5", Raster: "flood_rp0010_5.asc"}, {Name: "depth", Raster: "depth.asc"}}, columns)
}

func TestStore_SaveFailedResult(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	failed := domain.ExposureResult{
		RequestID:   "req-2",
		RunID:       "run-2",
		Status:      domain.StatusFailed,
		ErrorKind:   domain.KindGridMismatch,
		Error:       "raster attribute mismatch in file b.asc",
		Network:     "roads.geojson",
		Rasters:     []string{"a.asc", "b.asc"},
		ProcessedAt: time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC),
	}

	require.NoError(t, s.LoadBatch(ctx, []domain.ExposureResult{failed}))

	got, err := s.GetRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, domain.KindGridMismatch, got.ErrorKind)
	assert.Nil(t, got.Grid)
	assert.Empty(t, got.Segments)
}

func TestStore_SaveIsIdempotent(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	r := completedResult()

	require.NoError(t, s.SaveResult(ctx, r))
	r.Segments = r.Segments[:1]
	require.NoError(t, s.SaveResult(ctx, r))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Segments, 1)

	ids, err := s.RunsForRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)
}

func TestStore_RunsForRequest(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	first := completedResult()
	second := completedResult()
	second.RunID = "run-0"
	second.ProcessedAt = first.ProcessedAt.Add(time.Minute)
	require.NoError(t, s.LoadBatch(ctx, []domain.ExposureResult{second, first}))

	ids, err := s.RunsForRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1", "run-0"}, ids)
}

func TestStore_GetRunNotFound(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveResult(ctx, completedResult()))
	require.NoError(t, s.Close())

	reopened, err := Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Segments, 2)
}
