package fleet

// convert.go normalizes raw database values into the numeric domain types.
//
// The hosted tables this application grew out of were written to by several
// clients, so numeric columns arrive as numbers, numeric strings, or NULL.
// ParseNumeric and friends collapse that mess into plain float64 values:
//
//   - nil / NULL becomes 0 (or stays nil for the nullable variants)
//   - numbers pass through
//   - numeric strings are parsed
//   - anything unparseable becomes 0
//
// The "invalid input silently becomes zero" behavior is load-bearing: every
// KPI downstream assumes it and the UI the data was built for relied on it.
// ParseNumericStrict is the validating variant for call sites that want to
// reject bad input instead.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ParseNumeric converts a raw value to a float64.
// NULL and unparseable input become 0; NaN and infinities also collapse to 0
// so downstream aggregation never has to guard against them.
func ParseNumeric(v any) float64 {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return f
}

// ParseNullableNumeric converts a raw value to a *float64, preserving NULL.
// Non-nil unparseable input still collapses to 0.
func ParseNullableNumeric(v any) *float64 {
	if v == nil {
		return nil
	}
	f := ParseNumeric(v)
	return &f
}

// ParseNumericStrict converts a raw value to a float64 and reports invalid
// input instead of zeroing it. NULL is still 0: absence is not an error.
func ParseNumericStrict(v any) (float64, error) {
	if v == nil {
		return 0, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("invalid numeric value %v (%T)", v, v)
	}
	return f, nil
}

// toFloat attempts the conversion shared by the Parse* functions.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, true
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case pgtype.Numeric:
		if !n.Valid {
			return 0, true
		}
		parsed, err := n.Float64Value()
		if err != nil || !parsed.Valid {
			return 0, false
		}
		f = parsed.Float64
	case pgtype.Float8:
		if !n.Valid {
			return 0, true
		}
		f = n.Float64
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Nullable wraps a value in a pointer, the Go rendition of the original
// "undefined becomes null" normalization applied before persistence.
func Nullable[T any](v T) *T {
	return &v
}

// Deref returns the pointed-to value, or zero when the pointer is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// ToPgFloat8 converts an optional float to pgtype.Float8 for persistence.
func ToPgFloat8(p *float64) pgtype.Float8 {
	if p == nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: *p, Valid: true}
}

// FromPgFloat8 converts a nullable numeric column back to an optional float.
func FromPgFloat8(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid for empty or whitespace-only input so the column stays NULL.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// FromPgText converts a nullable text column to a string, NULL becoming "".
func FromPgText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// ToPgTimestamptz converts an optional time to pgtype.Timestamptz.
func ToPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// FromPgTimestamptz converts a nullable timestamp column to an optional time.
func FromPgTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
