// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline fans raw records out across a bounded pool of workers.
// Each worker runs the full per-record flow (validate, normalize, look up,
// write) and every record produces exactly one outcome.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/results-sync/internal/normalize"
	"github.com/pdiddy/results-sync/pkg/types"
)

// Dispatcher writes one canonical record to the remote service.
// *dispatch.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, id types.Identity, rec types.CanonicalRecord) types.Outcome
}

// ProgressFunc is called after each record completes with the number of
// completed records and the batch size. It runs on worker goroutines and
// must not block.
type ProgressFunc func(done, total int)

// Processor processes batches of raw records.
type Processor struct {
	dispatcher Dispatcher
	workers    int
	log        *zap.Logger
	progress   ProgressFunc
}

// Option configures a Processor.
type Option func(*Processor)

// WithWorkers bounds concurrent records. Values below 1 use the default.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n >= 1 {
			p.workers = n
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Processor) { p.progress = fn }
}

// New returns a Processor dispatching through d.
func New(d Dispatcher, opts ...Option) *Processor {
	p := &Processor{
		dispatcher: d,
		workers:    types.DefaultWorkers,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Workers returns the concurrency bound in effect.
func (p *Processor) Workers() int { return p.workers }

// Process runs every record through the pipeline with at most Workers
// records in flight. Because each worker issues its remote calls one after
// another, the same bound applies to in-flight API calls. Outcomes are
// collected in completion order; a failing record never stops the others.
func (p *Processor) Process(ctx context.Context, records []types.RawRecord) types.BatchResult {
	var (
		mu     sync.Mutex
		result types.BatchResult
		done   atomic.Int64
		total  = len(records)
	)

	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, raw := range records {
		g.Go(func() error {
			out := p.processOne(ctx, i, raw)

			mu.Lock()
			result.Add(out)
			mu.Unlock()

			n := done.Add(1)
			if p.progress != nil {
				p.progress(int(n), total)
			}
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// processOne never returns an error: rejections and remote failures are
// recorded on the outcome.
func (p *Processor) processOne(ctx context.Context, index int, raw types.RawRecord) types.Outcome {
	id := normalize.IdentityOf(raw)
	log := p.log.With(zap.Int("index", index), zap.String("roll_number", id.RollNumber), zap.String("semester", id.Semester))

	rec, err := normalize.Normalize(raw)
	if err != nil {
		out := types.Outcome{Index: index, Identity: id, Action: types.ActionSkipped, Err: err}
		switch {
		case errors.Is(err, normalize.ErrMissingIdentity):
			out.Message = "Missing roll_number or result_semester in record: " + err.Error()
		case errors.Is(err, normalize.ErrGPARequired):
			out.Message = "Error: GPA is required for passed status in record"
		default:
			out.Message = err.Error()
		}
		log.Debug("record skipped", zap.Error(err))
		return out
	}

	log.Debug("final record to be processed", zap.Any("record", rec))

	out := p.dispatcher.Dispatch(ctx, id, rec)
	out.Index = index
	if out.Action == types.ActionFailed {
		log.Debug("record failed", zap.Error(out.Err))
	} else {
		log.Debug("record synced", zap.String("action", string(out.Action)))
	}
	return out
}
