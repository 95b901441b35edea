package derive

// cells.go holds the lenient cell parsers used by the normalizers.
//
// Extract cells arrive with Excel formula wrappers (="0042"), stray quotes
// and padding. Numeric parsers never fail: an unparseable value becomes zero
// so that one bad cell does not reject a whole row.

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CleanCell trims whitespace and strips Excel ="..." wrappers and
// surrounding double quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// ParseDecimal parses a numeric cell, returning zero when it is blank or malformed.
// Thousands separators are removed before parsing.
func ParseDecimal(raw string) decimal.Decimal {
	s := strings.ReplaceAll(CleanCell(raw), ",", "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseNonNegativeDecimal is ParseDecimal with negative values clamped to zero.
func ParseNonNegativeDecimal(raw string) decimal.Decimal {
	d := ParseDecimal(raw)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseInt parses an integer cell, returning zero when it is blank or malformed.
// Values such as "3.0" are truncated.
func ParseInt(raw string) int {
	s := CleanCell(raw)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	d := ParseDecimal(s)
	return int(d.IntPart())
}
