package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/hazard-exposure-service/internal/adapter/http"
	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockTransformer struct {
	result domain.ExposureResult
	err    error
	body   string
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.ExposureResult, error) {
	m.body = string(raw.Value)
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, discardLogger())
}

func serve(srv *httpadapter.Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(fmt.Errorf("not ready yet")), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAnalyzeNotRegisteredWithoutTransformer(t *testing.T) {
	rec := serve(newTestServer(nil), http.MethodPost, "/analyze", "{}")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyze(t *testing.T) {
	const reqBody = `{"id":"req-1","network":"roads.geojson","rasters":["rp0010.asc"]}`

	tests := []struct {
		name     string
		tfm      *mockTransformer
		wantCode int
	}{
		{
			name:     "completed",
			tfm:      &mockTransformer{result: domain.ExposureResult{RequestID: "req-1", Status: domain.StatusCompleted}},
			wantCode: http.StatusOK,
		},
		{
			name: "failed analysis",
			tfm: &mockTransformer{result: domain.ExposureResult{
				RequestID: "req-1", Status: domain.StatusFailed, ErrorKind: domain.KindGridMismatch,
			}},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "undecodable request",
			tfm:      &mockTransformer{err: errors.New("parse analysis request: bad json")},
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httpadapter.NewServer(":0", &mockReadiness{}, tt.tfm, discardLogger())
			rec := serve(srv, http.MethodPost, "/analyze", reqBody)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, reqBody, tt.tfm.body)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestAnalyzeRejectsOversizedBody(t *testing.T) {
	tfm := &mockTransformer{}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, tfm, discardLogger())

	rec := serve(srv, http.MethodPost, "/analyze", strings.Repeat("x", 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, tfm.body)
}
