// Package postprocess replaces raw money and date text on built records with
// canonical values.
package postprocess

import (
	"time"

	"infobox_scraper/internal/normalize"
	"infobox_scraper/internal/record"
)

// Source and target field names.
const (
	FieldBudget       = "Budget"
	FieldBoxOffice    = "Box office"
	FieldReleaseDate  = "Release date"
	FieldBudgetUSD    = "Budget (US$)"
	FieldBoxOfficeUSD = "Box office (US$)"
)

type Processor struct {
	currency normalize.CurrencyNormalizer
}

func New(currency normalize.CurrencyNormalizer) *Processor {
	return &Processor{currency: currency}
}

// Process mutates rec in place and returns it. It must run once per record:
// a second pass sees no Budget/Box office source and nulls the amounts.
func (p *Processor) Process(rec *record.Record) *record.Record {
	rec.Set(FieldBudgetUSD, p.money(rec.GetOr(FieldBudget, sentinel())))
	rec.Set(FieldBoxOfficeUSD, p.money(rec.GetOr(FieldBoxOffice, sentinel())))
	rec.Delete(FieldBudget)
	rec.Delete(FieldBoxOffice)
	rec.Set(FieldReleaseDate, date(rec.GetOr(FieldReleaseDate, sentinel())))
	return rec
}

func (p *Processor) ProcessAll(records []*record.Record) {
	for _, rec := range records {
		p.Process(rec)
	}
}

func sentinel() record.Value {
	return record.Text(normalize.NotAvailable)
}

func (p *Processor) money(v record.Value) record.Value {
	var (
		amount float64
		ok     bool
	)
	switch v.Kind() {
	case record.KindText:
		s, _ := v.Text()
		amount, ok = p.currency.Normalize(s)
	case record.KindList:
		items, _ := v.List()
		amount, ok = p.currency.NormalizeList(items)
	case record.KindMoney:
		return v
	}
	if !ok {
		return record.NullMoney()
	}
	return record.Money(amount)
}

func date(v record.Value) record.Value {
	var (
		parsed time.Time
		ok     bool
	)
	switch v.Kind() {
	case record.KindText:
		s, _ := v.Text()
		parsed, ok = normalize.ParseDate(s)
	case record.KindList:
		items, _ := v.List()
		parsed, ok = normalize.ParseDateList(items)
	case record.KindDate:
		return v
	}
	if !ok {
		return record.NullDate()
	}
	return record.Date(parsed)
}
