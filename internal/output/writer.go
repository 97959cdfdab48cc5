// Package output streams sorted records to their destination, appending
// the configured terminator and optionally collapsing key-equal runs.
package output

import (
	"bufio"
	"fmt"
	"io"

	"recsort/internal/record"
)

// EqualFunc reports whether two payloads belong to the same equivalence
// class under the configured sub-keys (last-resort never participates in
// deduplication).
type EqualFunc func(a, b []byte) bool

// Writer emits records in the order received. With unique set, only the
// first record of each run of key-equal records is written. Every record,
// including the last, is followed by the terminator.
type Writer struct {
	bw     *bufio.Writer
	term   byte
	unique bool
	equal  EqualFunc

	prev    []byte
	havePrev bool
	written int
}

// NewWriter wraps dst. equal may be nil when unique is false.
func NewWriter(dst io.Writer, term byte, unique bool, equal EqualFunc) *Writer {
	return &Writer{
		bw:     bufio.NewWriterSize(dst, 64*1024),
		term:   term,
		unique: unique,
		equal:  equal,
	}
}

// Write emits one record. The payload may be reused by the caller after
// Write returns.
func (w *Writer) Write(rec record.Record) error {
	if w.unique {
		if w.havePrev && w.equal(w.prev, rec.Data) {
			return nil
		}
		// Keep a private copy: merge batches recycle their backing
		// storage between reads.
		w.prev = append(w.prev[:0], rec.Data...)
		w.havePrev = true
	}

	if _, err := w.bw.Write(rec.Data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := w.bw.WriteByte(w.term); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}
	w.written++
	return nil
}

// Written returns the number of records emitted (after deduplication).
func (w *Writer) Written() int {
	return w.written
}

// Flush drains the buffer to the destination.
func (w *Writer) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
