// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch drives a sync run over one JSON file or a directory of
// them. Files are processed one after another; records within a file are
// handed to the pipeline, which parallelizes them.
package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/pdiddy/results-sync/pkg/types"
)

var (
	// ErrNotFound is returned when the input path does not exist.
	ErrNotFound = errors.New("input path does not exist")

	// ErrWrongExtension is returned for a file without the data extension.
	ErrWrongExtension = errors.New("not a data file")

	// ErrNoDataFiles is returned for a directory with no data files.
	ErrNoDataFiles = errors.New("no data files found")

	// ErrMalformedInput is returned for files that are not a JSON array of
	// objects.
	ErrMalformedInput = errors.New("malformed input file")

	// ErrAborted marks files left unprocessed because the run was cancelled.
	ErrAborted = errors.New("sync aborted")
)

// Processor runs one batch of records. *pipeline.Processor satisfies it.
type Processor interface {
	Process(ctx context.Context, records []types.RawRecord) types.BatchResult
}

// Driver walks input paths and feeds their records to a Processor.
type Driver struct {
	processor Processor
	ext       string
	log       *zap.Logger

	// OnFile, when set, is called before each file is processed with the
	// file's position, the number of files, and its record count.
	OnFile func(index, count int, path string, records int)
}

// New returns a Driver. An empty ext selects ".json".
func New(p Processor, ext string, log *zap.Logger) *Driver {
	if ext == "" {
		ext = types.DefaultExtension
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{processor: p, ext: ext, log: log}
}

// Run processes path, which may be a single data file or a directory. A
// file that cannot be read or parsed is reported and skipped; the
// remaining files still run. Once ctx is cancelled no further file is
// loaded and each remaining one is recorded with ErrAborted. The returned
// error aggregates every input that could not be processed.
func (d *Driver) Run(ctx context.Context, path string) (types.RunSummary, error) {
	var summary types.RunSummary

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return summary, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return summary, fmt.Errorf("reading %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		files, err = d.Discover(path)
		if err != nil {
			return summary, err
		}
		d.log.Info("found data files", zap.String("dir", path), zap.Int("count", len(files)))
	} else {
		if !d.matches(path) {
			return summary, fmt.Errorf("%w: %s (want %s)", ErrWrongExtension, path, d.ext)
		}
		files = []string{path}
	}

	var errs *multierror.Error
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			for _, rest := range files[i:] {
				summary.Files = append(summary.Files, types.FileResult{
					Path: rest,
					Err:  fmt.Errorf("%w: %s: %w", ErrAborted, rest, err),
				})
			}
			d.log.Warn("sync aborted", zap.Int("remaining_files", len(files)-i), zap.Error(err))
			errs = multierror.Append(errs, fmt.Errorf("%w with %d file(s) remaining: %w", ErrAborted, len(files)-i, err))
			break
		}
		fr := d.runFile(ctx, i, len(files), f)
		if fr.Err != nil {
			errs = multierror.Append(errs, fr.Err)
		}
		summary.Files = append(summary.Files, fr)
	}
	return summary, errs.ErrorOrNil()
}

// Discover lists the data files directly inside dir, sorted by name.
// Subdirectories are not searched.
func (d *Driver) Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !d.matches(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDataFiles, dir)
	}
	sort.Strings(files)
	return files, nil
}

func (d *Driver) matches(name string) bool {
	return strings.HasSuffix(name, d.ext)
}

func (d *Driver) runFile(ctx context.Context, index, count int, path string) types.FileResult {
	log := d.log.With(zap.String("file", path))

	records, err := LoadRecords(path)
	if err != nil {
		log.Error("skipping file", zap.Error(err))
		return types.FileResult{Path: path, Err: err}
	}
	if d.OnFile != nil {
		d.OnFile(index, count, path, len(records))
	}
	log.Info("processing file", zap.Int("records", len(records)))

	result := d.processor.Process(ctx, records)
	for _, o := range result.Outcomes {
		if o.OK() {
			continue
		}
		log.Warn("record not synced",
			zap.String("detail", o.Message),
			zap.Int("index", o.Index),
			zap.String("roll_number", o.Identity.RollNumber),
			zap.String("semester", o.Identity.Semester),
			zap.String("action", string(o.Action)))
	}
	log.Info("file done",
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return types.FileResult{Path: path, Result: result}
}

// LoadRecords reads a JSON file holding an array of record objects.
// Numbers are kept as json.Number. Unreadable and unparsable files both
// return errors wrapping ErrMalformedInput.
func LoadRecords(path string) ([]types.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrMalformedInput, path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []types.RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedInput, path, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: trailing data after array", ErrMalformedInput, path)
	}
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("%w: %s: element %d is not an object", ErrMalformedInput, path, i)
		}
	}
	return records, nil
}
