package practo

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Numeric is a nullable numeric field as the upstream API delivers it:
// sometimes a JSON number, sometimes a quoted digit string, sometimes an
// empty string or garbage. Invalid input coerces to null rather than
// failing the record.
type Numeric struct {
	decimal.NullDecimal
}

// NumericFromInt returns a valid Numeric holding v.
func NumericFromInt(v int64) Numeric {
	return Numeric{decimal.NullDecimal{Decimal: decimal.NewFromInt(v), Valid: true}}
}

// NumericFromFloat returns a valid Numeric holding v.
func NumericFromFloat(v float64) Numeric {
	return Numeric{decimal.NullDecimal{Decimal: decimal.NewFromFloat(v), Valid: true}}
}

// CoerceNumeric applies the upstream string coercion rule: empty string
// maps to null, an unsigned digit run parses as an integer, anything else
// gets one float parse, and unparsable input maps to null.
func CoerceNumeric(s string) Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return Numeric{}
	}
	if isDigits(s) {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return NumericFromInt(v)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Numeric{}
	}
	return NumericFromFloat(f)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// UnmarshalJSON accepts numbers, strings, and null. Any other token
// (booleans, objects, arrays) coerces to null.
func (n *Numeric) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "" || s == "null":
		*n = Numeric{}
	case s[0] == '"':
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			*n = Numeric{}
			return nil
		}
		*n = CoerceNumeric(raw)
	default:
		d, err := decimal.NewFromString(s)
		if err != nil {
			*n = Numeric{}
			return nil
		}
		*n = Numeric{decimal.NullDecimal{Decimal: d, Valid: true}}
	}
	return nil
}

// IntOrZero returns the truncated integer value, or 0 when null.
func (n Numeric) IntOrZero() int {
	if !n.Valid {
		return 0
	}
	return int(n.Decimal.IntPart())
}

// StringPtr returns the decimal rendering, or nil when null. Used for
// array-typed text columns.
func (n Numeric) StringPtr() *string {
	if !n.Valid {
		return nil
	}
	s := n.Decimal.String()
	return &s
}
