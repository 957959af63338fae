// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/results-sync/pkg/types"
)

func sampleSummary() types.RunSummary {
	var a types.BatchResult
	a.Add(types.Outcome{Index: 2, Identity: types.Identity{RollNumber: "3", Semester: "6th"}, Action: types.ActionFailed, Message: "Error inserting record: insert record: HTTP 500"})
	a.Add(types.Outcome{Index: 0, Identity: types.Identity{RollNumber: "1", Semester: "6th"}, Action: types.ActionInserted, Message: "Record inserted successfully."})
	a.Add(types.Outcome{Index: 1, Identity: types.Identity{RollNumber: "2", Semester: "6th"}, Action: types.ActionInserted, Message: "Record inserted successfully.", Warning: "Error checking record: check record: HTTP 404"})
	a.Add(types.Outcome{Index: 3, Identity: types.Identity{Semester: "6th"}, Action: types.ActionSkipped, Message: "Missing roll_number or result_semester in record"})

	return types.RunSummary{Files: []types.FileResult{
		{Path: "data/a.json", Result: a},
		{Path: "data/b.json", Err: errors.New("malformed input file: data/b.json")},
	}}
}

func sampleConfig() types.SyncConfig {
	return types.SyncConfig{API: types.APIConfig{BaseURL: "https://results.example/api"}, Workers: 0}
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, 6, 20, 10, 0, 0, 0, time.FixedZone("BDT", 6*3600))
	r := Build(sampleSummary(), sampleConfig(), now)

	assert.Equal(t, now.UTC(), r.GeneratedAt)
	assert.Equal(t, types.DefaultWorkers, r.Workers)
	assert.Equal(t, Counts{Inserted: 2, Skipped: 1, Failed: 1}, r.Totals)

	require.Len(t, r.Files, 2)
	a := r.Files[0]
	require.Len(t, a.Problems, 3, "failed, skipped, and fail-open warning")
	assert.Equal(t, []int{1, 2, 3}, []int{a.Problems[0].Index, a.Problems[1].Index, a.Problems[2].Index})
	assert.Equal(t, "malformed input file: data/b.json", r.Files[1].Error)
}

func TestWriteFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, WriteFile(path, Build(sampleSummary(), sampleConfig(), time.Now())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Report
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, 1, got.Totals.Failed)
	assert.Equal(t, "https://results.example/api", got.BaseURL)
	assert.Contains(t, string(data), "roll_number: \"3\"")
}

func TestWriteFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteFile(path, Build(sampleSummary(), sampleConfig(), time.Now())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Contains(t, got, "totals")
	assert.Contains(t, got, "files")
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	WriteText(&buf, Build(sampleSummary(), sampleConfig(), time.Now()))
	out := buf.String()

	assert.Contains(t, out, "a.json #2 3/6th: Error inserting record")
	assert.Contains(t, out, "a.json #1 2/6th: Error checking record")
	assert.Contains(t, out, "failed:  data/b.json")
	assert.Contains(t, out, "Sync summary: 2 inserted, 0 updated, 1 skipped, 1 failed (total: 4)")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, Build(sampleSummary(), sampleConfig(), time.Now())))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got.Totals.Inserted)
}
