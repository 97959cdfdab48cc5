package record

import (
	"bufio"
	"fmt"
	"io"
	"iter"
)

// Reader splits one or more input streams, concatenated in the order
// supplied, into records delimited by a terminator byte. A final record
// with no trailing terminator is still produced. Every byte value is valid
// record content except the terminator itself; no character-set
// interpretation happens at this layer.
type Reader struct {
	br   *bufio.Reader
	term byte

	// buf is reused across records; the Data of a yielded Record aliases
	// it and is only valid until the next iteration step. Callers that
	// retain records must copy.
	buf  []byte
	next uint64
}

// NewReader returns a Reader over the concatenation of sources.
func NewReader(term byte, sources ...io.Reader) *Reader {
	var r io.Reader
	switch len(sources) {
	case 1:
		r = sources[0]
	default:
		r = io.MultiReader(sources...)
	}
	return &Reader{br: bufio.NewReaderSize(r, 64*1024), term: term}
}

// Iter yields records in input order. On an I/O failure it yields a zero
// Record with the error and stops. The yielded Record's Data is valid only
// until the next iteration step.
func (r *Reader) Iter() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := r.read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Record{}, fmt.Errorf("read record %d: %w", r.next, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// read returns the next record, or io.EOF after the last one.
func (r *Reader) read() (Record, error) {
	r.buf = r.buf[:0]
	for {
		chunk, err := r.br.ReadSlice(r.term)
		r.buf = append(r.buf, chunk...)
		switch err {
		case nil:
			rec := Record{Data: r.buf[:len(r.buf)-1], Index: r.next, HadTerminator: true}
			r.next++
			return rec, nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if len(r.buf) == 0 {
				return Record{}, io.EOF
			}
			rec := Record{Data: r.buf, Index: r.next, HadTerminator: false}
			r.next++
			return rec, nil
		default:
			return Record{}, err
		}
	}
}

// Count returns the number of records read so far.
func (r *Reader) Count() uint64 {
	return r.next
}
