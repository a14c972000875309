package townstats

import (
	"strconv"
	"strings"
	"time"
)

// PermitDate is the result of parsing a permit log date. Valid is false for
// anything that is not a well-formed MM/DD/YY or MM/DD/YYYY date.
type PermitDate struct {
	Time  time.Time
	Valid bool
}

// Unparsable is the PermitDate returned for malformed input.
var Unparsable = PermitDate{}

// ParsePermitDate parses MM/DD/YY or MM/DD/YYYY. Two-digit years are read as
// 2000+YY.
func ParsePermitDate(s string) PermitDate {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Unparsable
	}
	for _, p := range parts {
		if !allDigits(p) {
			return Unparsable
		}
	}
	month, _ := strconv.Atoi(parts[0])
	day, _ := strconv.Atoi(parts[1])
	if month < 1 || month > 12 || day < 1 {
		return Unparsable
	}

	year, _ := strconv.Atoi(parts[2])
	switch len(parts[2]) {
	case 2:
		year += 2000
	case 4:
	default:
		return Unparsable
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 02/30 into March; reject instead of rolling over.
	if t.Day() != day {
		return Unparsable
	}
	return PermitDate{Time: t, Valid: true}
}

// allDigits reports whether s is non-empty and only ASCII digits. Atoi alone
// would also accept a sign.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
