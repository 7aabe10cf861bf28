package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/encoding/wkt"
)

// Result statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// AnalysisRequest asks for a network to be overlaid on a set of rasters that
// share one grid. The first raster is the reference grid.
type AnalysisRequest struct {
	ID      string   `json:"id"`
	Network string   `json:"network"`
	Rasters []string `json:"rasters"`
	Band    int      `json:"band,omitempty"`
}

// Validate checks the request for missing fields.
func (r AnalysisRequest) Validate() error {
	if r.Network == "" {
		return errors.New("request has no network path")
	}
	if len(r.Rasters) == 0 {
		return ErrNoRasters
	}
	if r.Band < 0 {
		return fmt.Errorf("invalid band %d", r.Band)
	}
	return nil
}

// SegmentRecord is the serialized form of one exposure table row. A nil
// value is no data.
type SegmentRecord struct {
	OriginalIndex int        `json:"original_index"`
	Geometry      string     `json:"geometry"`
	RasterI       int        `json:"raster_i"`
	RasterJ       int        `json:"raster_j"`
	Values        []*float64 `json:"values"`
}

// ExposureResult is the outcome of one analysis request.
type ExposureResult struct {
	RequestID   string          `json:"request_id"`
	RunID       string          `json:"run_id"`
	Status      string          `json:"status"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	Error       string          `json:"error,omitempty"`
	Network     string          `json:"network"`
	Rasters     []string        `json:"rasters"`
	Grid        *GridDescriptor `json:"grid,omitempty"`
	Columns     []string        `json:"columns,omitempty"`
	Segments    []SegmentRecord `json:"segments,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// ParseRequest deserializes a RawEvent's value into an AnalysisRequest. The
// message key is used as the ID when the payload has none.
func ParseRequest(raw RawEvent) (AnalysisRequest, error) {
	var req AnalysisRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return AnalysisRequest{}, fmt.Errorf("parse analysis request: %w", err)
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	if err := req.Validate(); err != nil {
		return AnalysisRequest{}, fmt.Errorf("parse analysis request: %w", err)
	}
	return req, nil
}

// CompletedResult builds the result of a successful analysis.
func CompletedResult(req AnalysisRequest, runID string, table *ExposureTable) ExposureResult {
	grid := table.Grid
	records := make([]SegmentRecord, len(table.Segments))
	for n, seg := range table.Segments {
		values := make([]*float64, len(seg.Values))
		for k, v := range seg.Values {
			if !IsNoData(v) {
				values[k] = &v
			}
		}
		records[n] = SegmentRecord{
			OriginalIndex: seg.OriginalIndex,
			Geometry:      wkt.MarshalString(seg.Geometry),
			RasterI:       seg.Cell.I,
			RasterJ:       seg.Cell.J,
			Values:        values,
		}
	}
	return ExposureResult{
		RequestID:   req.ID,
		RunID:       runID,
		Status:      StatusCompleted,
		Network:     req.Network,
		Rasters:     req.Rasters,
		Grid:        &grid,
		Columns:     table.Columns,
		Segments:    records,
		ProcessedAt: clock.Now().UTC(),
	}
}

// FailedResult builds the result of an analysis that stopped with err.
func FailedResult(req AnalysisRequest, runID string, err error) ExposureResult {
	return ExposureResult{
		RequestID:   req.ID,
		RunID:       runID,
		Status:      StatusFailed,
		ErrorKind:   ErrorKind(err),
		Error:       err.Error(),
		Network:     req.Network,
		Rasters:     req.Rasters,
		ProcessedAt: clock.Now().UTC(),
	}
}

// SerializeResult marshals a result into an OutputEvent keyed by request ID.
func SerializeResult(result ExposureResult) (OutputEvent, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize exposure result: %w", err)
	}
	return OutputEvent{
		Key:   []byte(result.RequestID),
		Value: data,
		Headers: map[string]string{
			"status":       result.Status,
			"run_id":       result.RunID,
			"processed_at": result.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
