package infobox

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"infobox_scraper/internal/record"
)

// Rule names, in evaluation order.
const (
	RuleRunningTime = "running-time"
	RuleListItems   = "list-items"
	RuleLineBreaks  = "line-breaks"
	RulePlainText   = "plain-text"
)

type rowRule struct {
	name    string
	match   func(cell *goquery.Selection, flat string) bool
	extract func(cell *goquery.Selection, flat string) record.Value
}

// rowRules is evaluated top to bottom; the first match wins.
var rowRules = []rowRule{
	{
		name: RuleRunningTime,
		match: func(_ *goquery.Selection, flat string) bool {
			_, ok := leadingMinutes(flat)
			return ok
		},
		extract: func(_ *goquery.Selection, flat string) record.Value {
			n, _ := leadingMinutes(flat)
			return record.Int(n)
		},
	},
	{
		name: RuleListItems,
		match: func(cell *goquery.Selection, _ string) bool {
			return cell.Find("li").Length() > 0
		},
		extract: func(cell *goquery.Selection, _ string) record.Value {
			items := cell.Find("li").Map(func(_ int, li *goquery.Selection) string {
				return replaceNBSP(joinedText(li))
			})
			return record.List(items...)
		},
	},
	{
		name: RuleLineBreaks,
		match: func(cell *goquery.Selection, _ string) bool {
			return cell.Find("br").Length() > 0
		},
		extract: func(cell *goquery.Selection, _ string) record.Value {
			return record.List(strippedStrings(cell)...)
		},
	},
	{
		name:  RulePlainText,
		match: func(*goquery.Selection, string) bool { return true },
		extract: func(cell *goquery.Selection, _ string) record.Value {
			return record.Text(replaceNBSP(joinedText(cell)))
		},
	},
}

// leadingMinutes reads "100 minutes" as 100. It requires the " min" marker
// and an integer first token.
func leadingMinutes(flat string) (int, bool) {
	if !strings.Contains(flat, " min") {
		return 0, false
	}
	fields := strings.Fields(flat)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractValue converts an infobox data cell into a field value.
func ExtractValue(cell *goquery.Selection) record.Value {
	v, _ := extract(cell)
	return v
}

// MatchingRule names the rule ExtractValue applies to cell.
func MatchingRule(cell *goquery.Selection) string {
	_, name := extract(cell)
	return name
}

func extract(cell *goquery.Selection) (record.Value, string) {
	flat := cell.Text()
	for _, rule := range rowRules {
		if rule.match(cell, flat) {
			return rule.extract(cell, flat), rule.name
		}
	}
	return record.Missing(), ""
}
