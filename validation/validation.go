// Package validation collects field-level input violations as code strings
// keyed by field path (e.g. "items.0.description").
package validation

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records a violation unless the field already has one.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Error makes Violations usable as an error value.
func (v Violations) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	parts := make([]string, 0, len(v))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

// Finite rejects NaN and infinities. The numeric validators below apply it
// first.
func Finite(field string, val float64, v Violations) bool {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		v.Add(field, "invalid_number")
		return false
	}
	return true
}

func PositiveFloat(field string, val float64, v Violations) {
	if !Finite(field, val, v) {
		return
	}
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if !Finite(field, val, v) {
		return
	}
	if val < 0 {
		v.Add(field, "must_not_be_negative")
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if !Finite(field, val, v) {
		return
	}
	if val < minVal || val > maxVal {
		v.Add(field, "out_of_range")
	}
}

func MaxLen(field, value string, maxLen int, v Violations) {
	if len(value) > maxLen {
		v.Add(field, "too_long")
	}
}

func Matches(field, value string, re *regexp.Regexp, v Violations) {
	if value != "" && !re.MatchString(value) {
		v.Add(field, "invalid_format")
	}
}
