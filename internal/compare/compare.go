// Package compare implements the total order over records: the sub-key
// chain in key-spec order, then the last-resort whole-record comparison.
package compare

import (
	"bytes"

	"recsort/internal/config"
	"recsort/internal/key"
)

// Comparator orders two records under a Config. It is pure and safe for
// concurrent use; sorting goroutines that want allocation-free comparisons
// should each hold their own *Scratch pair via CompareInto.
type Comparator struct {
	ex         *key.Extractor
	lastResort bool
	reverse    bool
}

// New builds a Comparator for cfg.
func New(cfg *config.Config) *Comparator {
	return &Comparator{
		ex:         key.NewExtractor(cfg),
		lastResort: cfg.LastResort(),
		reverse:    cfg.Reverse,
	}
}

// Extractor exposes the comparator's key extractor for diagnostics.
func (c *Comparator) Extractor() *key.Extractor {
	return c.ex
}

// Compare returns a negative, zero or positive ordering of a against b.
// When every sub-key compares equal and neither stable nor unique mode is
// set, the records' entire raw bytes decide, with only the global reverse
// flag applied; fold and numeric settings never reach last-resort.
func (c *Comparator) Compare(a, b []byte) int {
	var sa, sb key.Scratch
	return c.CompareInto(&sa, &sb, a, b)
}

// CompareInto is Compare with caller-owned extraction scratch.
func (c *Comparator) CompareInto(sa, sb *key.Scratch, a, b []byte) int {
	if r := c.compareKeys(sa, sb, a, b); r != 0 {
		return r
	}
	if !c.lastResort {
		return 0
	}
	r := bytes.Compare(a, b)
	if c.reverse {
		r = -r
	}
	return r
}

// EqualKeys reports whether a and b belong to the same equivalence class
// under the configured sub-keys, ignoring last-resort. This is the dedup
// predicate for unique mode.
func (c *Comparator) EqualKeys(a, b []byte) bool {
	var sa, sb key.Scratch
	return c.compareKeys(&sa, &sb, a, b) == 0
}

// compareKeys walks the sub-keys in spec order; the first non-equal result
// decides, after applying that sub-key's own reverse.
func (c *Comparator) compareKeys(sa, sb *key.Scratch, a, b []byte) int {
	ka := c.ex.ExtractInto(sa, a)
	kb := c.ex.ExtractInto(sb, b)
	for i := range ka {
		r := compareSub(a, b, ka[i], kb[i])
		if r == 0 {
			continue
		}
		if ka[i].Reverse {
			r = -r
		}
		return r
	}
	return 0
}

func compareSub(a, b []byte, ka, kb key.SubKey) int {
	switch ka.Kind {
	case key.KindNumeric:
		return compareNumeric(ka, kb)
	case key.KindFold:
		return compareFolded(a[ka.Span.Start:ka.Span.End], b[kb.Span.Start:kb.Span.End])
	default:
		return bytes.Compare(a[ka.Span.Start:ka.Span.End], b[kb.Span.Start:kb.Span.End])
	}
}

// compareNumeric orders parsed values arithmetically. A key with no
// parsable numeric prefix is the lowest possible value: below every parsed
// number and equal to any other unparsable key.
func compareNumeric(a, b key.SubKey) int {
	switch {
	case !a.Parsed && !b.Parsed:
		return 0
	case !a.Parsed:
		return -1
	case !b.Parsed:
		return 1
	case a.Value < b.Value:
		return -1
	case a.Value > b.Value:
		return 1
	default:
		return 0
	}
}

// foldByte maps ASCII uppercase to lowercase; all other bytes unchanged.
func foldByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func compareFolded(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		fa, fb := foldByte(a[i]), foldByte(b[i])
		if fa != fb {
			if fa < fb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
