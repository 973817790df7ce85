package transformer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts for the first token of a date interval.
const (
	LayoutMonthYear     = "Jan 2006"     // "Jan 2019-Dec 2019"
	LayoutFullMonthYear = "January 2006" // "January 2021"
)

const places = 7

// ParseValue converts a raw numeric string. Percent values are divided by
// 100 and rounded to 7 places. Otherwise a whole number becomes int64 and
// anything else is rounded to 7 places as float64. Unparsable input (and
// whole numbers outside the int64 range) yields nil. Surrounding whitespace
// is ignored.
func ParseValue(s string, percent bool) any {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	if percent {
		f, _ := d.Div(decimal.NewFromInt(100)).Round(places).Float64()
		return f
	}
	if d.IsInteger() {
		if !d.BigInt().IsInt64() {
			return nil
		}
		return d.IntPart()
	}
	f, _ := d.Round(places).Float64()
	return f
}

// StartDate parses the first token of a date interval ("Jan 2019-Dec 2019")
// with layout. The token is not trimmed. Failure yields nil.
func StartDate(interval, layout string) any {
	first, _, _ := strings.Cut(interval, "-")
	t, err := time.Parse(layout, first)
	if err != nil {
		return nil
	}
	return t
}

// Truthy reports whether v counts as present: nil, "", numeric zero and
// false are falsy. Unclassified is the empty string and therefore falsy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case bool:
		return x
	case time.Time:
		return !x.IsZero()
	default:
		return true
	}
}
