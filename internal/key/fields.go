package key

// Span is a half-open byte-offset range into a record.
type Span struct {
	Start int
	End   int
}

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool { return s.End <= s.Start }

func isBlank(b byte) bool { return b == ' ' || b == '\t' }

// splitFields appends the span of every field in record to dst and returns
// the extended slice. With a literal separator, fields are the maximal runs
// between separator bytes; empty fields are allowed and the separator
// belongs to no field. Without one, fields are the maximal non-blank runs
// (space and tab separate fields and belong to none); a record that is
// empty or all blanks has a single empty field at offset 0.
func splitFields(dst []Span, record []byte, sep byte, hasSep bool) []Span {
	if hasSep {
		start := 0
		for i, b := range record {
			if b == sep {
				dst = append(dst, Span{start, i})
				start = i + 1
			}
		}
		return append(dst, Span{start, len(record)})
	}

	n0 := len(dst)
	inField := false
	start := 0
	for i, b := range record {
		switch {
		case isBlank(b) && inField:
			dst = append(dst, Span{start, i})
			inField = false
		case !isBlank(b) && !inField:
			start = i
			inField = true
		}
	}
	if inField {
		dst = append(dst, Span{start, len(record)})
	}
	if len(dst) == n0 {
		dst = append(dst, Span{0, 0})
	}
	return dst
}
