// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dispatch routes a canonical record to exactly one remote write:
// an update when the results API already holds the identity, an insert
// otherwise.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/results-sync/internal/httputil"
	"github.com/pdiddy/results-sync/pkg/types"
)

// Remote is the subset of the results API the dispatcher needs.
// *resultsapi.Client satisfies it.
type Remote interface {
	Exists(ctx context.Context, rollNumber, semester string) (bool, error)
	Insert(ctx context.Context, rec types.CanonicalRecord) error
	Update(ctx context.Context, rec types.CanonicalRecord) error
}

// Dispatcher issues at most one write per record.
type Dispatcher struct {
	remote     Remote
	insertOnly bool
	log        *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// InsertOnly skips the existence lookup and inserts every record.
func InsertOnly(v bool) Option {
	return func(d *Dispatcher) { d.insertOnly = v }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// New returns a Dispatcher writing through remote.
func New(remote Remote, opts ...Option) *Dispatcher {
	d := &Dispatcher{remote: remote, log: zap.NewNop()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch checks whether id exists remotely and then updates or inserts
// rec. A lookup answered with a non-200 status falls back to insert and is
// reported as a warning on the outcome; a lookup that got no response at
// all fails the record without writing.
func (d *Dispatcher) Dispatch(ctx context.Context, id types.Identity, rec types.CanonicalRecord) types.Outcome {
	out := types.Outcome{Identity: id}
	log := d.log.With(zap.String("roll_number", id.RollNumber), zap.String("semester", id.Semester))

	exists := false
	if !d.insertOnly {
		var err error
		exists, err = d.remote.Exists(ctx, id.RollNumber, id.Semester)
		if err != nil {
			var se *httputil.StatusError
			if !errors.As(err, &se) {
				out.Action = types.ActionFailed
				out.Err = fmt.Errorf("checking record: %w", err)
				out.Message = "Error checking record: " + err.Error()
				return out
			}
			exists = false
			out.Warning = "Error checking record: " + se.Error()
			log.Warn("existence check failed, inserting", zap.Int("status", se.StatusCode), zap.String("response", se.Body))
		}
	}

	if exists {
		log.Debug("updating record")
		if err := d.remote.Update(ctx, rec); err != nil {
			out.Action = types.ActionFailed
			out.Err = err
			out.Message = "Error updating record: " + err.Error()
			return out
		}
		out.Action = types.ActionUpdated
		out.Message = "Record updated successfully."
		return out
	}

	log.Debug("inserting record")
	if err := d.remote.Insert(ctx, rec); err != nil {
		out.Action = types.ActionFailed
		out.Err = err
		out.Message = "Error inserting record: " + err.Error()
		return out
	}
	out.Action = types.ActionInserted
	out.Message = "Record inserted successfully."
	return out
}
