// Package record defines the unit of input the sorter operates on and the
// reader that splits a byte stream into such units.
package record

// Record is one delimited unit of input. Data is an immutable byte span;
// Index is the record's original position in the input (0-based), used to
// keep equal records in input order. HadTerminator records whether the
// source had a trailing terminator byte for this record; output always
// appends one regardless.
type Record struct {
	Data          []byte
	Index         uint64
	HadTerminator bool
}
