// Package pipeline wires reader, sorter and writer into a complete sort
// run: read all inputs once, order the records under the memory budget,
// stream them to the destination.
package pipeline

import (
	"errors"
	"fmt"
	"io"

	"recsort/internal/compare"
	"recsort/internal/config"
	"recsort/internal/extsort"
	"recsort/internal/extsort/spill"
	"recsort/internal/key"
	"recsort/internal/output"
	"recsort/internal/record"
)

// ErrInternal tags failures that indicate a defect in the sorter rather
// than a bad environment. Callers can errors.Is against it to distinguish
// "bug" from "I/O problem".
var ErrInternal = errors.New("internal error")

type options struct {
	arena       spill.Arena
	memLimit    int64
	parallelism int
	observer    func(record.Record)
}

// Option adjusts a Run.
type Option func(*options)

// WithSpillArena overrides where oversized inputs spill. The pipeline
// releases the arena when done.
func WithSpillArena(a spill.Arena) Option {
	return func(o *options) { o.arena = a }
}

// WithMemoryLimit caps the per-chunk memory budget in bytes.
func WithMemoryLimit(n int64) Option {
	return func(o *options) { o.memLimit = n }
}

// WithParallelism bounds the chunk-sort worker pool.
func WithParallelism(n int) Option {
	return func(o *options) { o.parallelism = n }
}

// WithRecordObserver registers a callback invoked for every record during
// the read pass, before sorting. The record's payload is only valid for
// the duration of the call. This is the hook the debug annotator uses.
func WithRecordObserver(fn func(record.Record)) Option {
	return func(o *options) { o.observer = fn }
}

// Run sorts the concatenation of sources per cfg and writes the result to
// cfg.Output (stdout written to the supplied stdout writer). Temporary
// spill segments and staged output are released on every path.
func Run(cfg *config.Config, sources []io.Reader, stdout io.Writer, opts ...Option) error {
	o := options{memLimit: 256 * 1024 * 1024}
	for _, opt := range opts {
		opt(&o)
	}

	if o.arena == nil {
		arena, err := spill.NewTempArena()
		if err != nil {
			return fmt.Errorf("prepare spill storage: %w", err)
		}
		o.arena = arena
	}

	cmp := compare.New(cfg)
	newCompare := func() extsort.CompareFunc {
		var sa, sb key.Scratch
		return func(a, b record.Record) int {
			return cmp.CompareInto(&sa, &sb, a.Data, b.Data)
		}
	}

	sorterOpts := []extsort.Option{extsort.WithMemoryLimit(o.memLimit)}
	if o.parallelism > 0 {
		sorterOpts = append(sorterOpts, extsort.WithParallelism(o.parallelism))
	}
	sorter := extsort.New(o.arena, newCompare, sorterOpts...)
	defer sorter.Close()

	reader := record.NewReader(cfg.Terminator(), sources...)
	for rec, err := range reader.Iter() {
		if err != nil {
			return err
		}
		if o.observer != nil {
			o.observer(rec)
		}
		if err := sorter.Add(rec); err != nil {
			return fmt.Errorf("sort: %w", err)
		}
	}

	if err := sorter.Flush(); err != nil {
		return fmt.Errorf("sort: %w", err)
	}

	dest, err := output.OpenDestination(cfg.Output, stdout)
	if err != nil {
		return err
	}
	defer dest.Abort()

	var equal output.EqualFunc
	if cfg.Unique {
		equal = cmp.EqualKeys
	}
	w := output.NewWriter(dest.Writer(), cfg.Terminator(), cfg.Unique, equal)

	it := sorter.Iter()
	for rec := range it.All() {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		if errors.Is(err, extsort.ErrSegmentCorrupt) {
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
		return fmt.Errorf("merge: %w", err)
	}

	if !cfg.Unique && w.Written() != sorter.TotalRecords() {
		return fmt.Errorf("%w: wrote %d of %d records", ErrInternal, w.Written(), sorter.TotalRecords())
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return dest.Commit()
}
