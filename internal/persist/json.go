package persist

import (
	"encoding/json"
	"fmt"
	"io"

	"infobox_scraper/internal/record"
)

// JSONCodec is the primitive format: text, lists and integers only. Non-ASCII
// text is written as is.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(w io.Writer, records []*record.Record) error {
	for _, rec := range records {
		if !rec.IsPrimitive() {
			return fmt.Errorf("record %q: %w", rec.Title(), record.ErrNotPrimitive)
		}
	}
	if records == nil {
		records = []*record.Record{}
	}
	return newJSONEncoder(w).Encode(records)
}

func (JSONCodec) Decode(r io.Reader) ([]*record.Record, error) {
	var records []*record.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}

func newJSONEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc
}
