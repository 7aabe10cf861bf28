package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/hazard-exposure-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_WritesRequests(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fixtures")
	require.NoError(t, run([]string{"-out", dir}))

	f, err := os.Open(filepath.Join(dir, "requests.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var req domain.AnalysisRequest
		require.NoError(t, json.Unmarshal(sc.Bytes(), &req))
		require.NoError(t, req.Validate())
		for _, p := range append([]string{req.Network}, req.Rasters...) {
			assert.FileExists(t, filepath.Join(dir, p))
		}
		ids = append(ids, req.ID)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{"scenario", "flood", "rotated"}, ids)
}

func TestRun_MissingOut(t *testing.T) {
	assert.ErrorContains(t, run(nil), "-out")
}
