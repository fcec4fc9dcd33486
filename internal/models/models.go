package models

import "fmt"

// Document is a cached copy of a fetched page.
type Document struct {
	NormalizedURL string `bson:"normalized_url"`
	URL           string `bson:"url"`
	Source        string `bson:"source"`
	HTMLContent   string `bson:"html_content"`
	Title         string `bson:"title"`
	Excerpt       string `bson:"excerpt"`
	ContentHash   string `bson:"content_hash"`
	FirstScraped  int64  `bson:"first_scraped"`
	LastScraped   int64  `bson:"last_scraped"`
	ScrapedCount  int    `bson:"scraped_count"`
	ContentLength int    `bson:"content_length"`
}

// Entry is one link taken from the listing page.
type Entry struct {
	Index int
	Title string
	URL   string
}

// Skip records a document that produced no record.
type Skip struct {
	Index  int
	URL    string
	Title  string
	Reason string
	Err    error
}

func (s Skip) String() string {
	return fmt.Sprintf("#%03d %s (%s): %v", s.Index, s.Title, s.Reason, s.Err)
}

// Skip reasons.
const (
	ReasonFetch       = "fetch"
	ReasonWrongType   = "wrong-type"
	ReasonNoInfobox   = "no-infobox"
	ReasonNoTitle     = "no-title"
	ReasonUnspecified = "other"
)
