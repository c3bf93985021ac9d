// Package types provides core data types for Quarry.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ColumnType identifies the scalar type of a column.
type ColumnType string

const (
	// TypeString is a UTF-8 string column.
	TypeString ColumnType = "string"

	// TypeInt is a 64-bit signed integer column.
	TypeInt ColumnType = "int"

	// TypeFloat is a 64-bit floating point column.
	TypeFloat ColumnType = "float"

	// TypeDate is a calendar date column (no time-of-day component).
	TypeDate ColumnType = "date"
)

// DateFormat is the canonical textual form of a TypeDate value.
const DateFormat = "2006-01-02"

// NullToken is the textual form of a missing value in group keys and
// partition paths.
const NullToken = "__NULL__"

// AsFloat converts a numeric value to float64.
// Returns false for non-numeric values (strings, dates, nil).
func AsFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// Compare orders two values of the same logical type.
// Numeric values compare numerically (int64 and float64 mix), dates
// chronologically, everything else by string form. nil sorts first.
func Compare(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	af, aok := AsFloat(a)
	bf, bok := AsFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	at, aok2 := a.(time.Time)
	bt, bok2 := b.(time.Time)
	if aok2 && bok2 {
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(Format(a), Format(b))
}

// Format renders a value in its canonical textual form. This form is
// stable: it is used for group keys and for partition path encoding, and
// Parse inverts it for every ColumnType. A literal string that would read
// as the null token gains a leading backslash so nil and "__NULL__" stay
// distinguishable.
func Format(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return NullToken
	case string:
		if strings.TrimLeft(x, `\`) == NullToken {
			return `\` + x
		}
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(DateFormat)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Parse converts the canonical textual form back into a typed value.
// NullToken parses to nil for every type. The empty string parses to nil
// for non-string types; for string columns it is the empty string, so a
// non-NULL "" survives a Format/Parse round trip.
func Parse(s string, t ColumnType) (interface{}, error) {
	if s == NullToken {
		return nil, nil
	}
	if s == "" && t != TypeString {
		return nil, nil
	}

	switch t {
	case TypeString:
		if strings.TrimLeft(s, `\`) == NullToken {
			return s[1:], nil
		}
		return s, nil
	case TypeInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int value %q: %w", s, err)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value %q: %w", s, err)
		}
		return f, nil
	case TypeDate:
		d, err := time.Parse(DateFormat, s)
		if err != nil {
			return nil, fmt.Errorf("invalid date value %q: %w", s, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown column type %q", t)
	}
}

// IsNumeric reports whether a column type can be aggregated arithmetically.
func (t ColumnType) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}
