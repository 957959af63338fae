// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Action describes what happened to a single record.
type Action string

const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
	// ActionSkipped marks a record rejected before any remote call.
	ActionSkipped Action = "skipped"
	// ActionFailed marks a record whose lookup or write did not succeed.
	ActionFailed Action = "failed"
)

// Outcome is the per-record result of the sync pipeline. Err is set for
// skipped and failed records; Warning carries non-fatal diagnostics such as
// a failed existence lookup that fell back to insert.
type Outcome struct {
	// Index is the record's position in its source file.
	Index    int      `json:"index" yaml:"index"`
	Identity Identity `json:"identity" yaml:"identity"`
	Action   Action   `json:"action" yaml:"action"`
	Message  string   `json:"message" yaml:"message"`
	Warning  string   `json:"warning,omitempty" yaml:"warning,omitempty"`
	Err      error    `json:"-" yaml:"-"`
}

// OK reports whether the record reached the remote service successfully.
func (o Outcome) OK() bool {
	return o.Action == ActionInserted || o.Action == ActionUpdated
}

// BatchResult holds the outcomes of one batch of records (one input file).
type BatchResult struct {
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
	Outcomes []Outcome
}

// Add records an outcome and bumps the matching counter.
func (r *BatchResult) Add(o Outcome) {
	switch o.Action {
	case ActionInserted:
		r.Inserted++
	case ActionUpdated:
		r.Updated++
	case ActionSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Total returns the number of records processed.
func (r BatchResult) Total() int {
	return r.Inserted + r.Updated + r.Skipped + r.Failed
}

// HasFailures reports whether any record failed at the remote service.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// FileResult pairs an input file with its batch result or the error that
// aborted it.
type FileResult struct {
	Path   string
	Result BatchResult
	Err    error
}

// RunSummary aggregates a whole run across input files.
type RunSummary struct {
	Files []FileResult
}

// Totals sums the per-file counters.
func (s RunSummary) Totals() BatchResult {
	var t BatchResult
	for _, f := range s.Files {
		t.Inserted += f.Result.Inserted
		t.Updated += f.Result.Updated
		t.Skipped += f.Result.Skipped
		t.Failed += f.Result.Failed
	}
	return t
}

// FailedFiles returns the number of inputs that could not be processed.
func (s RunSummary) FailedFiles() int {
	n := 0
	for _, f := range s.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}
