// Package comps implements the comparable-matching engine: normalization of
// raw source fields, candidate pooling, hard filtering, similarity scoring,
// ranking, and statistics aggregation.
package comps

import (
	"math"
	"strconv"
	"strings"
)

// ParseOptionalFloat converts a raw source field to a float.  Absent, empty,
// and unparseable input yields nil; "0" is a valid zero.  Never panics.
func ParseOptionalFloat(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParseOptionalInt converts a raw source field to an int.  Values encoded as
// floats ("3.0") are truncated.  Absent, empty, and unparseable input yields
// nil; "0" is a valid zero.
func ParseOptionalInt(raw string) *int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := int(f)
	return &v
}

// ParseOptionalBool converts a raw boolean-like source field.  Only "true"
// and "false" (case-insensitive) are recognized; everything else yields nil.
func ParseOptionalBool(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}

// BoolFlag reads a boolean-like source field as a screening flag: absent or
// unparseable input counts as false.
func BoolFlag(raw string) bool {
	v := ParseOptionalBool(raw)
	return v != nil && *v
}
