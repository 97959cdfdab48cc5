package extsort

import (
	"container/heap"
	"context"
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"recsort/internal/extsort/spill"
	"recsort/internal/record"
)

// Iterator streams the sorted record sequence. Always check Err after
// iteration completes; breaking out early is not an error.
type Iterator struct {
	resident  []record.Record
	segs      []spill.Segment
	cmp       CompareFunc
	batchSize int
	expect    int

	errReady chan struct{}
	err      atomic.Pointer[error]
}

// Iter returns the sorted sequence. Must be called after Flush.
// Records read from spill segments own their payloads; resident records
// alias the sorter's chunk storage, which stays valid until Close.
func (s *Sorter) Iter() *Iterator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.flushed {
		panic("extsort: Iter before Flush")
	}
	s.segMu.Lock()
	segs := make([]spill.Segment, len(s.segs))
	copy(segs, s.segs)
	s.segMu.Unlock()

	return &Iterator{
		resident:  s.resident,
		segs:      segs,
		cmp:       s.newCompare(),
		batchSize: s.batchSize,
		expect:    s.total,
		errReady:  make(chan struct{}),
	}
}

// Err blocks until iteration has finished and returns its first failure,
// if any.
func (it *Iterator) Err() error {
	<-it.errReady
	if p := it.err.Load(); p != nil {
		return *p
	}
	return nil
}

// setError records the outcome exactly once; a nil err marks a clean
// finish. The first caller wins and unblocks Err.
func (it *Iterator) setError(err error) {
	if it.err.CompareAndSwap(nil, &err) {
		close(it.errReady)
	}
}

// All yields the merged, fully ordered record sequence.
func (it *Iterator) All() iter.Seq[record.Record] {
	if len(it.segs) == 0 {
		return it.allResident()
	}
	return it.allMerged()
}

func (it *Iterator) allResident() iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		defer it.setError(nil)
		for _, rec := range it.resident {
			if !yield(rec) {
				return
			}
		}
	}
}

// allMerged runs the k-way merge. Each segment gets a prefetch goroutine
// staging batches one ahead; the consumer drives a min-heap over the
// current head of every segment.
func (it *Iterator) allMerged() iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool := newBatchPool(it.batchSize, 2*len(it.segs))

		var wg sync.WaitGroup
		chans := make([]chan []record.Record, len(it.segs))
		for i, seg := range it.segs {
			chans[i] = make(chan []record.Record, 1)
			wg.Add(1)
			go func(i int, seg spill.Segment) {
				defer wg.Done()
				defer close(chans[i])
				if err := it.prefetch(ctx, seg, chans[i], pool); err != nil {
					cancel()
					it.setError(fmt.Errorf("segment %d: %w", i, err))
				}
			}(i, seg)
		}

		yielded := 0
		aborted := false

		var h mergeHeap
		h.cmp = it.cmp
		for _, ch := range chans {
			batch, ok := <-ch
			if !ok || len(batch) == 0 {
				continue
			}
			h.srcs = append(h.srcs, &mergeSource{batch: batch, ch: ch, pool: pool})
		}
		heap.Init(&h)

		for len(h.srcs) > 0 {
			src := h.srcs[0]
			yielded++
			if !yield(src.head()) {
				aborted = true
				break
			}
			if src.advance() {
				heap.Fix(&h, 0)
			} else {
				heap.Pop(&h)
			}
		}

		cancel()
		wg.Wait()

		if !aborted && yielded != it.expect && it.err.Load() == nil {
			it.setError(fmt.Errorf("merge yielded %d of %d records", yielded, it.expect))
		}
		it.setError(nil)
	}
}

// prefetch reads batches from one segment until EOF or cancellation.
func (it *Iterator) prefetch(ctx context.Context, seg spill.Segment, out chan<- []record.Record, pool *batchPool) error {
	r, err := seg.Open()
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer r.Close()

	sr := newSegmentReader(r)
	for {
		batch := pool.Get()
		for len(batch) < cap(batch) {
			rec, err := sr.next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			batch = append(batch, rec)
		}
		if len(batch) == 0 {
			return nil
		}
		full := len(batch) == cap(batch)
		select {
		case out <- batch:
		case <-ctx.Done():
			return nil
		}
		if !full {
			return nil
		}
	}
}

// mergeSource is one segment's stream position in the merge heap.
type mergeSource struct {
	batch []record.Record
	idx   int
	ch    <-chan []record.Record
	pool  *batchPool
}

func (m *mergeSource) head() record.Record {
	return m.batch[m.idx]
}

// advance moves to the next record, pulling the next staged batch when
// the current one is exhausted. Returns false at end of segment.
func (m *mergeSource) advance() bool {
	m.idx++
	if m.idx < len(m.batch) {
		return true
	}
	m.pool.Put(m.batch)
	next, ok := <-m.ch
	if !ok || len(next) == 0 {
		return false
	}
	m.batch = next
	m.idx = 0
	return true
}

// mergeHeap orders segment heads by the comparator, breaking comparator
// ties on original input index. Chunks are cut from the input in order,
// so this reproduces exactly the order a single-threaded stable sort
// would emit.
type mergeHeap struct {
	srcs []*mergeSource
	cmp  CompareFunc
}

func (h *mergeHeap) Len() int { return len(h.srcs) }

func (h *mergeHeap) Less(i, j int) bool {
	a, b := h.srcs[i].head(), h.srcs[j].head()
	if r := h.cmp(a, b); r != 0 {
		return r < 0
	}
	return a.Index < b.Index
}

func (h *mergeHeap) Swap(i, j int) { h.srcs[i], h.srcs[j] = h.srcs[j], h.srcs[i] }

func (h *mergeHeap) Push(x any) { h.srcs = append(h.srcs, x.(*mergeSource)) }

func (h *mergeHeap) Pop() any {
	old := h.srcs
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	h.srcs = old[:n-1]
	return x
}
