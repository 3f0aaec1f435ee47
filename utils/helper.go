package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

func NilIfEmpty[T comparable](ptr T) *T {
	var defaultZero T
	if ptr == defaultZero {
		return nil
	}
	return &ptr
}

func SplitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadLocation falls back to UTC for an empty name.
func LoadLocation(timezone string) (*time.Location, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return loc, nil
}

// ConvertToDate returns midnight of t's calendar day as seen in loc.
func ConvertToDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	localTime := t.In(loc)
	return time.Date(localTime.Year(), localTime.Month(), localTime.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween counts whole calendar days from a to b, ignoring clock time and DST shifts.
// The result is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// ParseFormattedDecimal accepts spreadsheet-formatted numbers like:
// - "20,000"
// - "USD 20,000"
// - "$ -1,234.50"
// - "(1,234.50)" accounting negatives
// - "12.5%"
//
// Currency prefixes/suffixes are stripped; anything left that is not a number is an error.
func ParseFormattedDecimal(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsSpace(r) || r == '$' || r == '%' || unicode.Is(unicode.Sc, r)
	})
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = strings.TrimLeftFunc(strings.TrimPrefix(s, "-"), func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsSpace(r) || r == '$' || unicode.Is(unicode.Sc, r)
		})
	}
	if s == "" {
		return decimal.Zero, ErrorInvalidValue
	}
	dec, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrorInvalidValue, value)
	}
	if neg {
		dec = dec.Neg()
	}
	return dec, nil
}
