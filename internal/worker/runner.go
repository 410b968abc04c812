// Package worker executes a conversion batch off the serving context,
// isolating per-item failures and reporting progress over a channel.
package worker

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"batchconv/internal/export"
	"batchconv/internal/format"
	"batchconv/internal/mover"
	"batchconv/internal/store"
)

// ErrBatchInFlight is returned when a batch or move is requested while
// the artifact list is already owned by a running operation.
var ErrBatchInFlight = errors.New("a batch is already in flight")

// Options describes one conversion batch.
type Options struct {
	FormatName   string
	Quality      int
	KeepMetadata bool
	Suffix       string
	OutputDir    string
}

// Result is the aggregated outcome of a completed batch.
type Result struct {
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
	OutputDir string `json:"output_dir"`
}

// Progress reports how far a running batch has come.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Event is one notification from a running batch: a Progress per
// processed item, then exactly one event with Result set. The channel is
// closed after the completion event.
type Event struct {
	Progress Progress
	Result   *Result
}

// Runner owns the tracked artifact list of the most recent batch and
// runs at most one batch at a time. Starting a batch and moving
// artifacts are mutually exclusive: both take ownership of the list.
type Runner struct {
	exporter *export.Exporter
	history  *store.Store // optional, nil disables history

	mu        sync.Mutex
	busy      bool
	artifacts []string
	last      *Result
}

// New creates a runner. history may be nil.
func New(exporter *export.Exporter, history *store.Store) *Runner {
	return &Runner{exporter: exporter, history: history}
}

// Start launches a batch over the given queue snapshot. The previous
// batch's tracked artifacts are discarded. Returns the batch id and the
// event channel, or ErrBatchInFlight / a format resolution error
// synchronously before any work begins.
func (r *Runner) Start(snapshot []string, opts Options) (string, <-chan Event, error) {
	f, err := format.Resolve(opts.FormatName)
	if err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return "", nil, ErrBatchInFlight
	}
	r.busy = true
	r.artifacts = nil
	r.mu.Unlock()

	id := uuid.NewString()
	// Buffered so the batch never stalls on a slow consumer.
	events := make(chan Event, len(snapshot)+1)
	go r.run(id, snapshot, f, opts, events)
	return id, events, nil
}

func (r *Runner) run(id string, snapshot []string, f format.Format, opts Options, events chan<- Event) {
	defer close(events)

	res := Result{OutputDir: opts.OutputDir}
	for i, src := range snapshot {
		start := time.Now()
		out, err := r.exporter.Export(src, opts.OutputDir, f, opts.Quality, opts.KeepMetadata, opts.Suffix)
		if err != nil {
			res.Failures++
			log.Printf("[batch %s] convert failed for %s: %v", id, src, err)
			r.recordItem(id, src, "", err, time.Since(start))
		} else {
			res.Successes++
			r.mu.Lock()
			r.artifacts = append(r.artifacts, out)
			r.mu.Unlock()
			r.recordItem(id, src, out, nil, time.Since(start))
		}
		events <- Event{Progress: Progress{Done: i + 1, Total: len(snapshot)}}
	}

	r.recordBatch(id, opts, res)

	r.mu.Lock()
	r.last = &res
	r.busy = false
	r.mu.Unlock()

	events <- Event{Progress: Progress{Done: len(snapshot), Total: len(snapshot)}, Result: &res}
	log.Printf("[batch %s] done: %d converted, %d failed, output %s", id, res.Successes, res.Failures, res.OutputDir)
}

// MoveArtifacts relocates the tracked artifacts to dest via the mover.
// Refused while a batch is in flight; the moved entries leave the list,
// failed ones stay for retry.
func (r *Runner) MoveArtifacts(dest string) (int, error) {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return 0, ErrBatchInFlight
	}
	r.busy = true
	arts := r.artifacts
	r.mu.Unlock()

	moved, err := mover.MoveAll(&arts, dest)

	r.mu.Lock()
	r.artifacts = arts
	r.busy = false
	r.mu.Unlock()
	return moved, err
}

// Artifacts returns a copy of the tracked output paths, safe to read
// while a batch runs.
func (r *Runner) Artifacts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.artifacts))
	copy(out, r.artifacts)
	return out
}

// LastResult returns the result of the most recently completed batch,
// nil before the first one finishes.
func (r *Runner) LastResult() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Busy reports whether a batch or move currently owns the artifact list.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

func (r *Runner) recordItem(batchID, src, out string, err error, d time.Duration) {
	if r.history == nil {
		return
	}
	rec := &store.ItemRecord{
		BatchID:    batchID,
		SourcePath: src,
		OutputPath: out,
		Status:     store.StatusSuccess,
		DurationMs: d.Milliseconds(),
	}
	if err != nil {
		rec.Status = store.StatusFailed
		rec.ErrorMessage = err.Error()
	}
	if dbErr := r.history.InsertItem(rec); dbErr != nil {
		log.Printf("insert item history failed: %v", dbErr)
	}
}

func (r *Runner) recordBatch(id string, opts Options, res Result) {
	if r.history == nil {
		return
	}
	rec := &store.BatchRecord{
		ID:        id,
		Format:    opts.FormatName,
		Quality:   opts.Quality,
		Successes: res.Successes,
		Failures:  res.Failures,
		OutputDir: res.OutputDir,
	}
	if err := r.history.InsertBatch(rec); err != nil {
		log.Printf("insert batch history failed: %v", err)
	}
}
