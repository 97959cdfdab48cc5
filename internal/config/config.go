// Package config holds the immutable, validated settings for a sort run.
// A Config is built once, before any record is read, and is threaded by
// value into every component; nothing mutates it afterwards.
package config

// Config is the validated runtime configuration.
type Config struct {
	// Global ordering modifiers. Per-key modifiers on a KeySpec override
	// Numeric and FoldCase for that key.
	Reverse  bool
	Numeric  bool
	FoldCase bool

	// Unique keeps one representative per run of key-equal records.
	Unique bool
	// Stable preserves input order for key-equal records.
	Stable bool

	// ZeroTerminated selects NUL instead of LF as the record terminator
	// for both input and output.
	ZeroTerminated bool

	// FieldSep is the literal field separator byte; it is consulted only
	// when HasFieldSep is set. Otherwise fields split on blank runs.
	FieldSep    byte
	HasFieldSep bool

	// Keys are the ordered sort keys. Empty means the whole record is the
	// sole key under the global modifiers.
	Keys []KeySpec

	// Output is the destination path. Empty or "-" means stdout.
	Output string
}

// Terminator returns the record terminator byte.
func (c *Config) Terminator() byte {
	if c.ZeroTerminated {
		return 0
	}
	return '\n'
}

// LastResort reports whether the whole-record bytewise tie-break applies
// when all keys compare equal. Both -s and -u disable it.
func (c *Config) LastResort() bool {
	return !c.Stable && !c.Unique
}

// StableSort reports whether key-equal records must keep their input order.
// The sorter is unconditionally stable, so this only documents intent for
// callers; it mirrors LastResort.
func (c *Config) StableSort() bool {
	return c.Stable || c.Unique
}
