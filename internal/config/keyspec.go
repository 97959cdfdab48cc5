package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifiers are per-key ordering overrides. When any of them is set on a
// KeySpec, the spec's Numeric/Fold take the place of the global defaults
// for that key, and Reverse flips only that key's contribution.
type Modifiers struct {
	Numeric bool
	Fold    bool
	Reverse bool
}

// Any reports whether at least one modifier is set.
func (m Modifiers) Any() bool {
	return m.Numeric || m.Fold || m.Reverse
}

// KeySpec is one sort key definition. Field and character positions are
// 1-based. EndField == 0 means "to the end of the record"; StartChar or
// EndChar == 0 means the field's first or last byte respectively.
//
// A KeySpec obtained from NewKeySpec or ParseKey is always valid; invalid
// ranges are rejected at construction.
type KeySpec struct {
	StartField int
	StartChar  int
	EndField   int
	EndChar    int
	Mods       Modifiers
}

// NewKeySpec validates and builds a KeySpec.
func NewKeySpec(startField, startChar, endField, endChar int, mods Modifiers) (KeySpec, error) {
	if startField < 1 {
		return KeySpec{}, fmt.Errorf("invalid key: start field must be >= 1, got %d", startField)
	}
	if startChar < 0 || endChar < 0 || endField < 0 {
		return KeySpec{}, fmt.Errorf("invalid key: positions must not be negative")
	}
	if endField != 0 && endField < startField {
		return KeySpec{}, fmt.Errorf("invalid key: end field %d < start field %d", endField, startField)
	}
	if endField == startField && startChar != 0 && endChar != 0 && endChar < startChar {
		return KeySpec{}, fmt.Errorf("invalid key: end char %d < start char %d", endChar, startChar)
	}
	return KeySpec{
		StartField: startField,
		StartChar:  startChar,
		EndField:   endField,
		EndChar:    endChar,
		Mods:       mods,
	}, nil
}

// ParseKey parses a -k style key definition: FIELD[.CHAR][OPTS][,FIELD[.CHAR][OPTS]]
// where OPTS is any combination of the modifier letters n, f and r.
// Examples: "2", "1,2", "2.3,2.5", "3n", "1,1fr".
func ParseKey(s string) (KeySpec, error) {
	start, end, hasEnd := s, "", false
	if i := strings.IndexByte(s, ','); i >= 0 {
		start, end, hasEnd = s[:i], s[i+1:], true
	}

	var mods Modifiers
	startField, startChar, err := parseKeyPart(start, &mods)
	if err != nil {
		return KeySpec{}, fmt.Errorf("invalid key %q: %w", s, err)
	}

	endField, endChar := 0, 0
	if hasEnd {
		endField, endChar, err = parseKeyPart(end, &mods)
		if err != nil {
			return KeySpec{}, fmt.Errorf("invalid key %q: %w", s, err)
		}
		if endField == 0 {
			return KeySpec{}, fmt.Errorf("invalid key %q: end field must be >= 1", s)
		}
	}

	spec, err := NewKeySpec(startField, startChar, endField, endChar, mods)
	if err != nil {
		return KeySpec{}, fmt.Errorf("%w (in %q)", err, s)
	}
	return spec, nil
}

// parseKeyPart parses one side of a key definition: FIELD[.CHAR][OPTS].
// Modifier letters accumulate into mods; both sides of the definition
// contribute to the same modifier set.
func parseKeyPart(s string, mods *Modifiers) (field, char int, err error) {
	// Strip trailing modifier letters.
	body := s
	for len(body) > 0 {
		c := body[len(body)-1]
		if c < 'a' || c > 'z' {
			break
		}
		switch c {
		case 'n':
			mods.Numeric = true
		case 'f':
			mods.Fold = true
		case 'r':
			mods.Reverse = true
		default:
			return 0, 0, fmt.Errorf("unknown key modifier %q", string(c))
		}
		body = body[:len(body)-1]
	}

	fieldStr, charStr := body, ""
	if i := strings.IndexByte(body, '.'); i >= 0 {
		fieldStr, charStr = body[:i], body[i+1:]
	}

	field, err = strconv.Atoi(fieldStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid field number %q", fieldStr)
	}
	if charStr != "" {
		char, err = strconv.Atoi(charStr)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid char position %q", charStr)
		}
		if char < 1 {
			return 0, 0, fmt.Errorf("char position must be >= 1, got %d", char)
		}
	}
	return field, char, nil
}
