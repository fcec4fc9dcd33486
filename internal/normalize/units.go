// Package normalize turns infobox money and date text into canonical values.
// Both normalizers report a miss instead of failing on text they cannot read.
package normalize

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Units maps scale words to their multipliers.
var Units = map[string]int64{
	"thousand": 1_000,
	"million":  1_000_000,
	"billion":  1_000_000_000,
}

// UnitMultiplier looks up a scale word case-insensitively.
func UnitMultiplier(word string) (decimal.Decimal, bool) {
	m, ok := Units[strings.ToLower(word)]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(m), true
}

// unitAlternation returns "billion|million|thousand" for regexp use.
func unitAlternation() string {
	words := make([]string, 0, len(Units))
	for w := range Units {
		words = append(words, w)
	}
	sort.Strings(words)
	return strings.Join(words, "|")
}
