package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// NotAvailable is the sentinel used for absent source fields.
const NotAvailable = "N/A"

const currencyMarker = "$"

// magnitude accepts "4", "3000", "3,000", "3000.5" and "3,000.90".
const magnitude = `\d+(?:,\d{3})*\.*\d*`

var (
	reMagnitude = regexp.MustCompile(magnitude)

	// "$12 million", "$1-2 thousand", "$3–4 million", "$5 to 6 million",
	// "$1 – 2 billion"
	reWordSyntax = regexp.MustCompile(`(?i)\$` + magnitude +
		`\s*(?:-|\sto\s|–)?\s*(` + magnitude + `)?\s(` + unitAlternation() + `)`)

	// "$790,000"
	reValueSyntax = regexp.MustCompile(`\$` + magnitude)
)

// RangePolicy picks the amount used for a ranged expression such as
// "$1–2 billion".
type RangePolicy int

const (
	RangeLowerBound RangePolicy = iota
	RangeUpperBound
	RangeMean
)

func ParseRangePolicy(s string) (RangePolicy, error) {
	switch strings.ToLower(s) {
	case "", "lower":
		return RangeLowerBound, nil
	case "upper":
		return RangeUpperBound, nil
	case "mean":
		return RangeMean, nil
	}
	return RangeLowerBound, fmt.Errorf("unknown currency range policy %q", s)
}

type CurrencyNormalizer struct {
	Range RangePolicy
}

var defaultCurrency = CurrencyNormalizer{Range: RangeLowerBound}

// ParseMoney normalizes raw with the lower-bound range policy.
func ParseMoney(raw string) (float64, bool) {
	return defaultCurrency.Normalize(raw)
}

// ParseMoneyList normalizes the first candidate carrying a currency marker.
func ParseMoneyList(candidates []string) (float64, bool) {
	return defaultCurrency.NormalizeList(candidates)
}

func (n CurrencyNormalizer) NormalizeList(candidates []string) (float64, bool) {
	for _, c := range candidates {
		if strings.Contains(c, currencyMarker) {
			return n.Normalize(c)
		}
	}
	return 0, false
}

// Normalize returns the amount in raw and false when raw holds no readable
// amount. Word syntax wins over value syntax when both match. Unicode
// whitespace (nbsp included) counts as a single space.
func (n CurrencyNormalizer) Normalize(raw string) (float64, bool) {
	if raw == NotAvailable {
		return 0, false
	}
	raw = strings.Join(strings.Fields(raw), " ")

	if m := reWordSyntax.FindStringSubmatchIndex(raw); m != nil {
		return n.parseWordSyntax(raw, m)
	}

	if amount := reValueSyntax.FindString(raw); amount != "" {
		d, ok := parseMagnitude(reMagnitude.FindString(amount))
		if !ok {
			return 0, false
		}
		f, _ := d.Float64()
		return f, true
	}

	return 0, false
}

func (n CurrencyNormalizer) parseWordSyntax(raw string, m []int) (float64, bool) {
	span := raw[m[0]:m[1]]
	unit := raw[m[4]:m[5]]

	multiplier, ok := UnitMultiplier(unit)
	if !ok {
		return 0, false
	}

	lower, ok := parseMagnitude(reMagnitude.FindString(reValueSyntax.FindString(span)))
	if !ok {
		return 0, false
	}

	amount := lower
	if m[2] >= 0 && n.Range != RangeLowerBound {
		upper, ok := parseMagnitude(raw[m[2]:m[3]])
		if ok {
			switch n.Range {
			case RangeUpperBound:
				amount = upper
			case RangeMean:
				amount = lower.Add(upper).Div(decimal.NewFromInt(2))
			}
		}
	}

	f, _ := amount.Mul(multiplier).Float64()
	return f, true
}

func parseMagnitude(s string) (decimal.Decimal, bool) {
	s = strings.TrimRight(strings.ReplaceAll(s, ",", ""), ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
