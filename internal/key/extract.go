// Package key locates and materializes a record's sort keys.
//
// A key is a byte span resolved from 1-based (field, char) positions
// against the record's field layout, plus, for numeric keys, the parsed
// leading number of that span. Resolution never fails: positions past the
// end of the record yield an empty span.
package key

import (
	"recsort/internal/config"
)

// Kind selects how a sub-key's bytes are compared. Enumerated rather than
// dispatched through an interface so the comparator can switch over it
// exhaustively.
type Kind int

const (
	// KindBytes compares raw bytes lexicographically.
	KindBytes Kind = iota
	// KindFold compares bytes after mapping ASCII uppercase to lowercase.
	KindFold
	// KindNumeric compares parsed leading numbers arithmetically.
	KindNumeric
)

// SubKey is one resolved sub-key of a record: its span within the record,
// its comparison kind, and for numeric kinds the parsed value.
type SubKey struct {
	Span    Span
	Kind    Kind
	Reverse bool

	// Value and Parsed are meaningful only for KindNumeric. Parsed is
	// false when the span has no numeric prefix; such keys order below
	// every parsed number.
	Value  float64
	Parsed bool
}

// plan is a KeySpec with its modifiers resolved against the global config.
type plan struct {
	spec    config.KeySpec
	kind    Kind
	reverse bool
}

// Extractor computes the ordered sub-key tuple of a record per a Config's
// key specifications. It is read-only after construction and safe for
// concurrent use by multiple sort workers, provided each goroutine uses
// its own scratch via ExtractInto.
type Extractor struct {
	plans    []plan
	sep      byte
	hasSep   bool
	fallback plan // used when no keys are configured: whole record
}

// NewExtractor resolves the effective kind and reverse of every key
// against the global modifiers. A key carrying any of its own modifiers
// overrides the global numeric/fold/reverse defaults entirely.
func NewExtractor(cfg *config.Config) *Extractor {
	globalKind := KindBytes
	switch {
	case cfg.Numeric:
		globalKind = KindNumeric
	case cfg.FoldCase:
		globalKind = KindFold
	}

	e := &Extractor{
		sep:      cfg.FieldSep,
		hasSep:   cfg.HasFieldSep,
		fallback: plan{kind: globalKind, reverse: cfg.Reverse},
	}
	for _, spec := range cfg.Keys {
		p := plan{spec: spec, kind: globalKind, reverse: cfg.Reverse}
		if spec.Mods.Any() {
			switch {
			case spec.Mods.Numeric:
				p.kind = KindNumeric
			case spec.Mods.Fold:
				p.kind = KindFold
			default:
				p.kind = KindBytes
			}
			p.reverse = spec.Mods.Reverse
		}
		e.plans = append(e.plans, p)
	}
	return e
}

// NumKeys returns the number of sub-keys produced per record (always >= 1;
// the whole-record fallback counts as one).
func (e *Extractor) NumKeys() int {
	if len(e.plans) == 0 {
		return 1
	}
	return len(e.plans)
}

// Scratch holds reusable extraction buffers. Each sorting goroutine owns
// one; the zero value is ready to use.
type Scratch struct {
	fields []Span
	keys   []SubKey
}

// ExtractInto resolves every sub-key of record into s and returns the
// resulting slice, which is valid until the next call with the same
// Scratch.
func (e *Extractor) ExtractInto(s *Scratch, record []byte) []SubKey {
	s.keys = s.keys[:0]
	if len(e.plans) == 0 {
		sub := SubKey{
			Span:    Span{0, len(record)},
			Kind:    e.fallback.kind,
			Reverse: e.fallback.reverse,
		}
		if sub.Kind == KindNumeric {
			sub.Value, sub.Parsed = ParseNumeric(record)
		}
		s.keys = append(s.keys, sub)
		return s.keys
	}

	s.fields = splitFields(s.fields[:0], record, e.sep, e.hasSep)
	for _, p := range e.plans {
		span := resolveSpan(record, s.fields, p.spec)
		sub := SubKey{Span: span, Kind: p.kind, Reverse: p.reverse}
		if p.kind == KindNumeric {
			sub.Value, sub.Parsed = ParseNumeric(record[span.Start:span.End])
		}
		s.keys = append(s.keys, sub)
	}
	return s.keys
}

// Extract is ExtractInto with a throwaway scratch.
func (e *Extractor) Extract(record []byte) []SubKey {
	var s Scratch
	return e.ExtractInto(&s, record)
}

// resolveSpan maps a KeySpec onto byte offsets within record. The span
// runs from (StartField, StartChar) through (EndField, EndChar) inclusive,
// so multi-field keys keep the original separator bytes between fields.
// A start at or past the end of the record resolves to an empty span.
func resolveSpan(record []byte, fields []Span, spec config.KeySpec) Span {
	startIdx := spec.StartField - 1
	if startIdx >= len(fields) {
		return Span{len(record), len(record)}
	}

	endIdx := len(fields) - 1
	if spec.EndField != 0 && spec.EndField-1 < endIdx {
		endIdx = spec.EndField - 1
	}

	first, last := fields[startIdx], fields[endIdx]

	start := first.Start
	if spec.StartChar != 0 {
		start += spec.StartChar - 1
	}
	if start > first.End {
		start = first.End
	}

	end := last.End
	if spec.EndChar != 0 {
		// EndChar is 1-based and inclusive.
		if e := last.Start + spec.EndChar; e < end {
			end = e
		}
	}

	if start >= end {
		return Span{start, start}
	}
	return Span{start, end}
}

// Range describes one resolved sub-key of a record for diagnostics: the
// byte-offset span and, for numeric keys, the parsed value. This is the
// only interface the debug printer needs.
type Range struct {
	Start   int
	End     int
	Numeric bool
	Value   float64
	Parsed  bool
}

// Ranges reports the resolved spans of every sub-key of record.
func (e *Extractor) Ranges(record []byte) []Range {
	subs := e.Extract(record)
	out := make([]Range, len(subs))
	for i, sub := range subs {
		out[i] = Range{
			Start:   sub.Span.Start,
			End:     sub.Span.End,
			Numeric: sub.Kind == KindNumeric,
			Value:   sub.Value,
			Parsed:  sub.Parsed,
		}
	}
	return out
}
