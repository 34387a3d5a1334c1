package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var nullTokens = map[string]struct{}{
	"": {}, "-": {}, "none": {}, "null": {}, "nan": {},
}

// cleanNumber removes thousands separators and whitespace. It reports false for null tokens.
func cleanNumber(raw string) (string, bool) {
	s := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if _, null := nullTokens[strings.ToLower(s)]; null {
		return "", false
	}

	return s, true
}

// Int coerces a numeric string such as " 82,000 " to an integer. Values that are empty,
// null-like, non-numeric or fractional yield nil.
func Int(raw string) *int64 {
	s, ok := cleanNumber(raw)
	if !ok {
		return nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	n := int64(f)

	return &n
}

// Float coerces a numeric string to a float. Empty, null-like or non-numeric values yield nil.
func Float(raw string) *float64 {
	s, ok := cleanNumber(raw)
	if !ok {
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}

	return &f
}

// Text returns nil for an empty string.
func Text(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func zeroPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// ContractYearMonth renders year and month as YYYYMM. It is empty unless both carry digits.
func ContractYearMonth(year, month string) string {
	y, m := digits(year), digits(month)
	if y == "" || m == "" {
		return ""
	}

	return zeroPad(y, 4) + zeroPad(m, 2)
}

// ContractDate parses year, month and day into a date. It is nil when a part is missing or
// the parts do not form a valid calendar date.
func ContractDate(year, month, day string) *time.Time {
	ym := ContractYearMonth(year, month)
	d := digits(day)
	if ym == "" || d == "" {
		return nil
	}

	date, err := time.Parse("20060102", ym+zeroPad(d, 2))
	if err != nil {
		return nil
	}

	return &date
}
