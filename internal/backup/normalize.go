package backup

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fold returns the canonical comparison form of a user-entered string:
// NFKC-normalized, whitespace-trimmed and lowercased. All string equality
// in duplicate detection goes through this.
func fold(s string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(s)))
}

func foldEqual(a, b string) bool {
	return fold(a) == fold(b)
}

// digitsOnly strips everything but digits from a phone number, so
// "+351 912-345-678" and "912345678" compare equal on the national part
// being present in both.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// dateOnly extracts the calendar date portion from a stored date string.
// The date is taken lexically from the stored representation rather than
// through time parsing, so the calendar day survives time-zone skew
// introduced by older exporters.
func dateOnly(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= len(time.DateOnly) {
		return s[:len(time.DateOnly)]
	}

	return s
}

// datesClose reports whether two calendar dates are at most one day apart.
// The one-day band absorbs known export/import time-zone drift; it is a
// shipped behavior, not a tunable.
func datesClose(a, b string) bool {
	ta, errA := time.Parse(time.DateOnly, dateOnly(a))
	tb, errB := time.Parse(time.DateOnly, dateOnly(b))

	if errA != nil || errB != nil {
		// Unparseable dates fall back to exact string comparison.
		return dateOnly(a) == dateOnly(b)
	}

	diff := ta.Sub(tb)
	if diff < 0 {
		diff = -diff
	}

	return diff <= 24*time.Hour
}

// hourMinute normalizes a time-of-day string to "15:04", dropping seconds.
func hourMinute(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 5 {
		return s[:5]
	}

	return s
}
