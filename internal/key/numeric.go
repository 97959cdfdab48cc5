package key

import "strconv"

// ParseNumeric parses the leading numeric value of a key span.
//
// Grammar: optional leading blanks, optional sign, digits with at most one
// decimal point (digits may appear on either side of the point, at least
// one digit total), and an optional exponent marker with optionally signed
// digits. Parsing stops at the first byte outside the grammar; trailing
// bytes are ignored.
//
// ok is false when no numeric prefix exists at all. Such a key orders
// below every parsed number; it is never an error.
func ParseNumeric(b []byte) (val float64, ok bool) {
	i := 0
	for i < len(b) && isBlank(b[i]) {
		i++
	}
	b = b[i:]

	end := 0
	if end < len(b) && (b[end] == '+' || b[end] == '-') {
		end++
	}

	digits := 0
	for end < len(b) && b[end] >= '0' && b[end] <= '9' {
		end++
		digits++
	}
	if end < len(b) && b[end] == '.' {
		mark := end
		end++
		for end < len(b) && b[end] >= '0' && b[end] <= '9' {
			end++
			digits++
		}
		// A bare dot with no digits on either side is not numeric.
		if digits == 0 {
			end = mark
		}
	}
	if digits == 0 {
		return 0, false
	}

	// Exponent is consumed only when at least one digit follows it.
	if end < len(b) && (b[end] == 'e' || b[end] == 'E') {
		j := end + 1
		if j < len(b) && (b[j] == '+' || b[j] == '-') {
			j++
		}
		expDigits := 0
		for j < len(b) && b[j] >= '0' && b[j] <= '9' {
			j++
			expDigits++
		}
		if expDigits > 0 {
			end = j
		}
	}

	// The prefix is pure ASCII by construction; ParseFloat accepts all of
	// it, including "5." and ".5". On range errors it still returns the
	// saturated value (±Inf on overflow), which orders correctly.
	v, err := strconv.ParseFloat(string(b[:end]), 64)
	if err != nil {
		if ne, isNum := err.(*strconv.NumError); !isNum || ne.Err != strconv.ErrRange {
			return 0, false
		}
	}
	return v, true
}
