// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a run summary for operators: a short console
// trailer, or a structured YAML/JSON document listing every record that did
// not sync.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/results-sync/pkg/types"
)

// Report is the serialized form of a run.
type Report struct {
	GeneratedAt time.Time    `json:"generated_at" yaml:"generated_at"`
	BaseURL     string       `json:"base_url" yaml:"base_url"`
	Workers     int          `json:"workers" yaml:"workers"`
	InsertOnly  bool         `json:"insert_only" yaml:"insert_only"`
	Totals      Counts       `json:"totals" yaml:"totals"`
	Files       []FileReport `json:"files" yaml:"files"`
}

// Counts summarizes outcomes.
type Counts struct {
	Inserted int `json:"inserted" yaml:"inserted"`
	Updated  int `json:"updated" yaml:"updated"`
	Skipped  int `json:"skipped" yaml:"skipped"`
	Failed   int `json:"failed" yaml:"failed"`
}

// FileReport is one input file. Problems lists outcomes that were not a
// clean insert or update, plus fail-open lookups, sorted by record index.
type FileReport struct {
	Path     string          `json:"path" yaml:"path"`
	Error    string          `json:"error,omitempty" yaml:"error,omitempty"`
	Counts   Counts          `json:"counts" yaml:"counts"`
	Problems []types.Outcome `json:"problems,omitempty" yaml:"problems,omitempty"`
}

func countsOf(r types.BatchResult) Counts {
	return Counts{Inserted: r.Inserted, Updated: r.Updated, Skipped: r.Skipped, Failed: r.Failed}
}

// Build converts a run summary into a Report.
func Build(s types.RunSummary, cfg types.SyncConfig, now time.Time) Report {
	r := Report{
		GeneratedAt: now.UTC(),
		BaseURL:     cfg.API.BaseURL,
		Workers:     cfg.EffectiveWorkers(),
		InsertOnly:  cfg.InsertOnly,
		Totals:      countsOf(s.Totals()),
	}
	for _, f := range s.Files {
		fr := FileReport{Path: f.Path, Counts: countsOf(f.Result)}
		if f.Err != nil {
			fr.Error = f.Err.Error()
		}
		for _, o := range f.Result.Outcomes {
			if o.OK() && o.Warning == "" {
				continue
			}
			fr.Problems = append(fr.Problems, o)
		}
		sort.Slice(fr.Problems, func(i, j int) bool { return fr.Problems[i].Index < fr.Problems[j].Index })
		r.Files = append(r.Files, fr)
	}
	return r
}

// WriteFile saves the report to path, choosing JSON for a .json extension
// and YAML otherwise.
func WriteFile(path string, r Report) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(r, "", "  ")
	default:
		data, err = yaml.Marshal(&r)
	}
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteJSON encodes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText prints the human-readable trailer: one line per problem record
// followed by the totals.
func WriteText(w io.Writer, r Report) {
	for _, f := range r.Files {
		if f.Error != "" {
			fmt.Fprintf(w, "failed:  %s (%s)\n", f.Path, f.Error)
			continue
		}
		for _, o := range f.Problems {
			line := o.Message
			if o.OK() {
				line = o.Warning
			}
			fmt.Fprintf(w, "  %s #%d %s: %s\n", filepath.Base(f.Path), o.Index, o.Identity, line)
		}
	}
	t := r.Totals
	fmt.Fprintf(w, "\nSync summary: %d inserted, %d updated, %d skipped, %d failed (total: %d)\n",
		t.Inserted, t.Updated, t.Skipped, t.Failed, t.Inserted+t.Updated+t.Skipped+t.Failed)
}
