package normalize

import (
	"strings"
	"time"
)

// dateLayouts are tried in order: "June 16, 1995" then "16 June 1995".
var dateLayouts = []string{
	"January 2, 2006",
	"2 January 2006",
}

const displayLayout = "January 2, 2006"

// ParseDate strips any parenthetical annotation and parses the remainder
// with dateLayouts. The result is midnight UTC.
func ParseDate(raw string) (time.Time, bool) {
	if raw == NotAvailable {
		return time.Time{}, false
	}

	if i := strings.Index(raw, "("); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.Join(strings.Fields(raw), " ")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateList parses the first entry of candidates.
func ParseDateList(candidates []string) (time.Time, bool) {
	if len(candidates) == 0 {
		return time.Time{}, false
	}
	return ParseDate(candidates[0])
}

// FormatDate renders t as "Month Day, Year".
func FormatDate(t time.Time) string {
	return t.Format(displayLayout)
}
