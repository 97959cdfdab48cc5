// Package extsort sorts record sets of any size under a memory budget.
//
// Records accumulate into chunks; when a chunk exceeds the budget it is
// stable-sorted by a bounded worker pool and spilled to a private segment.
// Iteration runs a k-way merge over all sorted chunks, breaking
// comparator ties on original input index so the global order is
// identical to a single-threaded stable sort of the whole input. Inputs
// that fit in one chunk are sorted and iterated in memory, without
// touching spill storage.
package extsort

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"recsort/internal/extsort/spill"
	"recsort/internal/record"
)

// CompareFunc orders two records. It must be a total preorder; input
// index tie-breaking is the sorter's job, not the comparator's.
type CompareFunc func(a, b record.Record) int

// estimated per-record bookkeeping beyond the payload bytes (slice
// header, index, sort scratch). Counted against the memory budget.
const recordOverhead = 48

type options struct {
	memLimit  int64
	workers   int
	batchSize int
}

// Option tunes a Sorter.
type Option func(*options)

// WithMemoryLimit caps the byte size of each in-memory chunk. Peak
// residency is roughly one chunk per worker plus the chunk being filled.
func WithMemoryLimit(n int64) Option {
	return func(o *options) { o.memLimit = n }
}

// WithParallelism bounds the chunk-sort worker pool. Defaults to the
// available hardware parallelism.
func WithParallelism(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMergeBatchSize sets how many records each segment reader stages
// ahead during the merge.
func WithMergeBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// Sorter accumulates records via Add, orders them on Flush, and hands
// them out through Iter. Add/Flush/Iter/Close must be called from one
// goroutine; the sorting itself fans out internally.
type Sorter struct {
	arena      spill.Arena
	newCompare func() CompareFunc

	memLimit  int64
	batchSize int

	eg errgroup.Group

	mu       sync.Mutex
	cur      []record.Record
	curArena *byteArena
	curBytes int64
	total    int
	spilled  bool
	flushed  bool

	segMu sync.Mutex
	segs  []spill.Segment

	resident []record.Record

	err atomic.Pointer[error]
}

// New builds a Sorter spilling through arena. newCompare is invoked once
// per worker goroutine so each can hold its own comparison scratch.
func New(arena spill.Arena, newCompare func() CompareFunc, opts ...Option) *Sorter {
	o := options{
		memLimit:  64 * 1024 * 1024,
		workers:   runtime.GOMAXPROCS(0),
		batchSize: 128,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.batchSize < 1 {
		o.batchSize = 1
	}

	s := &Sorter{
		arena:      arena,
		newCompare: newCompare,
		memLimit:   o.memLimit,
		batchSize:  o.batchSize,
	}
	s.eg.SetLimit(o.workers)
	return s
}

func (s *Sorter) setError(err error) {
	s.err.CompareAndSwap(nil, &err)
}

func (s *Sorter) haveError() error {
	if p := s.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Add appends one record. The payload is copied into chunk-owned storage,
// so the caller may reuse its buffer. Add blocks while all workers are
// busy sorting earlier chunks.
func (s *Sorter) Add(rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.haveError(); err != nil {
		return err
	}
	if s.flushed {
		return fmt.Errorf("add after flush")
	}

	if s.curArena == nil {
		s.curArena = newByteArena(int(min(s.memLimit, 1<<20)))
	}
	rec.Data = s.curArena.copyBytes(rec.Data)
	s.cur = append(s.cur, rec)
	s.curBytes += int64(len(rec.Data)) + recordOverhead
	s.total++

	if s.curBytes >= s.memLimit {
		s.spillCurrent()
	}
	return nil
}

// TotalRecords returns the number of records added.
func (s *Sorter) TotalRecords() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// spillCurrent hands the active chunk to the worker pool and starts a new
// one. Caller holds mu.
func (s *Sorter) spillCurrent() {
	chunk := s.cur
	s.cur = nil
	s.curArena = nil
	s.curBytes = 0
	s.spilled = true
	if len(chunk) == 0 {
		return
	}
	s.eg.Go(func() error {
		if err := s.sortAndStore(chunk); err != nil {
			err = fmt.Errorf("store chunk: %w", err)
			s.setError(err)
			return err
		}
		return nil
	})
}

// sortAndStore stable-sorts one chunk and writes it to a fresh segment.
func (s *Sorter) sortAndStore(chunk []record.Record) error {
	cmp := s.newCompare()
	slices.SortStableFunc(chunk, cmp)

	seg, err := s.arena.New()
	if err != nil {
		return fmt.Errorf("create segment: %w", err)
	}
	w, err := seg.Create()
	if err != nil {
		return fmt.Errorf("open segment writer: %w", err)
	}

	sw := newSegmentWriter(w)
	for _, rec := range chunk {
		if err := sw.writeRecord(rec); err != nil {
			w.Close()
			return err
		}
	}
	if err := sw.finish(); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close segment: %w", err)
	}

	s.segMu.Lock()
	s.segs = append(s.segs, seg)
	s.segMu.Unlock()
	return nil
}

// Flush completes all pending chunk sorts. When nothing was spilled the
// records stay resident and are sorted in place. Must be called before
// Iter.
func (s *Sorter) Flush() error {
	s.mu.Lock()
	if s.flushed {
		s.mu.Unlock()
		return nil
	}
	s.flushed = true

	if !s.spilled {
		// In-memory fast path: single chunk, no serialization.
		s.resident = s.cur
		s.cur = nil
		s.curArena = nil
		s.mu.Unlock()
		cmp := s.newCompare()
		slices.SortStableFunc(s.resident, cmp)
		return s.haveError()
	}

	s.spillCurrent()
	s.mu.Unlock()

	if err := s.eg.Wait(); err != nil {
		return fmt.Errorf("sort chunks: %w", err)
	}
	return s.haveError()
}

// Close waits for any in-flight workers and releases all spill storage.
// Safe on every exit path, including after errors.
func (s *Sorter) Close() error {
	s.eg.Wait()
	s.segMu.Lock()
	s.segs = nil
	s.segMu.Unlock()
	if err := s.arena.Release(); err != nil {
		return fmt.Errorf("release spill storage: %w", err)
	}
	return nil
}
