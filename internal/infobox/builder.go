// Package infobox builds records out of the infobox table of a document.
package infobox

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"infobox_scraper/internal/record"
)

var (
	ErrWrongDocumentType = errors.New("document is a disallowed subtype")
	ErrNoInfobox         = errors.New("infobox table not found")
	ErrNoTitle           = errors.New("infobox has no title header")
)

// BuildError ties a build failure to the document it came from.
type BuildError struct {
	URL string
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.URL, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Selectors locate the parts of a document the builder cares about.
type Selectors struct {
	Infobox      string
	RejectMarker string
	Footnotes    string
	Timestamps   string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Infobox:      "table.infobox.vevent",
		RejectMarker: "th.infobox-header.summary",
		Footnotes:    "sup",
		Timestamps:   "span.bday.dtstart.published.updated",
	}
}

type Builder struct {
	sel Selectors
}

func NewBuilder(sel Selectors) *Builder {
	def := DefaultSelectors()
	if sel.Infobox == "" {
		sel.Infobox = def.Infobox
	}
	if sel.RejectMarker == "" {
		sel.RejectMarker = def.RejectMarker
	}
	if sel.Footnotes == "" {
		sel.Footnotes = def.Footnotes
	}
	if sel.Timestamps == "" {
		sel.Timestamps = def.Timestamps
	}
	return &Builder{sel: sel}
}

// Build parses body and assembles the record for the document at index.
func (b *Builder) Build(index int, body []byte, sourceURL string) (*record.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &BuildError{URL: sourceURL, Err: err}
	}
	return b.BuildDocument(index, doc, sourceURL)
}

// BuildDocument is Build on an already parsed document. The document is
// modified: footnotes and timestamp containers are removed.
func (b *Builder) BuildDocument(index int, doc *goquery.Document, sourceURL string) (*record.Record, error) {
	if doc.Find(b.sel.RejectMarker).Length() > 0 {
		return nil, &BuildError{URL: sourceURL, Err: ErrWrongDocumentType}
	}

	b.cleanup(doc.Selection)

	table := doc.Find(b.sel.Infobox).First()
	if table.Length() == 0 {
		return nil, &BuildError{URL: sourceURL, Err: ErrNoInfobox}
	}

	rec := record.New()
	var buildErr error
	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		header := row.Find("th").First()
		if i == 0 {
			if header.Length() == 0 {
				buildErr = &BuildError{URL: sourceURL, Err: ErrNoTitle}
				return false
			}
			rec.Set(record.KeyTitle, record.Text(fmt.Sprintf("# %03d: %s", index, headerText(header))))
			rec.Set(record.KeyWikiLink, record.Text(sourceURL))
			return true
		}

		data := row.Find("td").First()
		if header.Length() == 0 || data.Length() == 0 {
			return true
		}
		rec.Set(headerText(header), ExtractValue(data))
		return true
	})
	if buildErr != nil {
		return nil, buildErr
	}
	if rec.Len() == 0 {
		return nil, &BuildError{URL: sourceURL, Err: ErrNoTitle}
	}
	return rec, nil
}

// headerText is the field name for a row; nbsp is folded so that
// "Release\u00a0date" and "Release date" land on the same key.
func headerText(th *goquery.Selection) string {
	return replaceNBSP(joinedText(th))
}

func (b *Builder) cleanup(root *goquery.Selection) {
	root.Find(b.sel.Footnotes).Remove()
	root.Find(b.sel.Timestamps).Parent().Remove()
}
