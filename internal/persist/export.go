package persist

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"infobox_scraper/internal/normalize"
	"infobox_scraper/internal/record"
)

const listSeparator = "; "

// Columns is the union of all record keys in first-seen order.
func Columns(records []*record.Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range records {
		for _, key := range rec.Keys() {
			if !seen[key] {
				seen[key] = true
				cols = append(cols, key)
			}
		}
	}
	return cols
}

// CellText renders a value for a spreadsheet cell. Null values are empty.
func CellText(v record.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case record.KindText:
		s, _ := v.Text()
		return s
	case record.KindList:
		items, _ := v.List()
		return strings.Join(items, listSeparator)
	case record.KindInt:
		n, _ := v.Int()
		return strconv.Itoa(n)
	case record.KindMoney:
		f, _ := v.Money()
		return strconv.FormatFloat(f, 'f', -1, 64)
	case record.KindDate:
		t, _ := v.Date()
		return normalize.FormatDate(t)
	}
	return ""
}

// WriteCSV flattens records into one row each; absent fields are empty cells.
func WriteCSV(w io.Writer, records []*record.Record) error {
	cols := Columns(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for _, rec := range records {
		for i, col := range cols {
			row[i] = CellText(rec.GetOr(col, record.Missing()))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExportJSON writes records in a consumer-friendly JSON shape: amounts
// as numbers, dates as "Month Day, Year", nulls as null. Field order is kept
// and nothing is HTML-escaped.
func WriteExportJSON(w io.Writer, records []*record.Record) error {
	rows := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		row, err := exportRow(rec)
		if err != nil {
			return fmt.Errorf("record %q: %w", rec.Title(), err)
		}
		rows = append(rows, row)
	}
	return newJSONEncoder(w).Encode(rows)
}

func exportRow(rec *record.Record) (json.RawMessage, error) {
	var (
		buf bytes.Buffer
		err error
	)
	buf.WriteByte('{')
	rec.Each(func(key string, v record.Value) bool {
		var k, val []byte
		if k, err = marshalNoEscape(key); err != nil {
			return false
		}
		if val, err = marshalNoEscape(exportValue(v)); err != nil {
			err = fmt.Errorf("field %q: %w", key, err)
			return false
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalNoEscape(x any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(x); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func exportValue(v record.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case record.KindText:
		s, _ := v.Text()
		return s
	case record.KindList:
		items, _ := v.List()
		return items
	case record.KindInt:
		n, _ := v.Int()
		return n
	case record.KindMoney:
		f, _ := v.Money()
		return f
	case record.KindDate:
		t, _ := v.Date()
		return normalize.FormatDate(t)
	}
	return nil
}

// Exporter writes a final collection in one output format.
type Exporter func(w io.Writer, records []*record.Record) error
