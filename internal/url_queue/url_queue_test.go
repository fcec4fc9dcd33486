package urlqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infobox_scraper/internal/models"
)

const listingHTML = `<html><body>
<table class="wikitable sortable">
<tr><td><i><a href="/wiki/Toy_Story">Toy Story</a></i></td></tr>
<tr><td><i><a href="/wiki/Toy_Story_2#Plot">Toy Story 2</a></i></td></tr>
<tr><td><i><a href="https://www.en.wikipedia.org/wiki/Toy_Story">Toy Story (again)</a></i></td></tr>
<tr><td><i><a href="/w/index.php?title=Unmade&action=edit&redlink=1">Unmade</a></i></td></tr>
<tr><td><a href="/wiki/Not_Italic">Not italic</a></td></tr>
<tr><td><i><a href="#cite">cite</a></i></td></tr>
<tr><td><i><a href="/wiki/Cars">Cars</a></i></td></tr>
</table>
<table class="wikitable"><tr><td><i><a href="/wiki/Unsorted">Unsorted</a></i></td></tr></table>
</body></html>`

func TestExtractListing(t *testing.T) {
	entries, err := ExtractListing([]byte(listingHTML), "https://en.wikipedia.org/wiki/List",
		".wikitable.sortable i a", nil, []string{`redlink=1`}, 0)
	require.NoError(t, err)

	assert.Equal(t, []models.Entry{
		{Index: 1, Title: "Toy Story", URL: "https://en.wikipedia.org/wiki/Toy_Story"},
		{Index: 2, Title: "Toy Story 2", URL: "https://en.wikipedia.org/wiki/Toy_Story_2#Plot"},
		{Index: 3, Title: "Cars", URL: "https://en.wikipedia.org/wiki/Cars"},
	}, entries)
}

func TestExtractListing_FollowPatternsAndLimit(t *testing.T) {
	entries, err := ExtractListing([]byte(listingHTML), "https://en.wikipedia.org/wiki/List",
		".wikitable.sortable i a", []string{`/wiki/Toy_`}, nil, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Toy Story", entries[0].Title)
}

func TestExtractListing_BadBase(t *testing.T) {
	_, err := ExtractListing([]byte(listingHTML), "://nope", "a", nil, nil, 0)
	assert.Error(t, err)
}

func TestURLQueue(t *testing.T) {
	q := NewURLQueue(0)
	assert.True(t, q.Add(models.Entry{Index: 1, URL: "https://www.example.org/a#x"}))
	assert.False(t, q.Add(models.Entry{Index: 2, URL: "https://example.org/a"}))
	assert.True(t, q.Add(models.Entry{Index: 3, URL: "https://example.org/b"}))
	assert.False(t, q.Add(models.Entry{Index: 4, URL: "//example.org/b"}))

	entries := q.Drain()
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Index)
	assert.Equal(t, 3, entries[1].Index)
	assert.Empty(t, q.Drain())
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.org/wiki/A", NormalizeURL("https://www.example.org/wiki/A#History"))
	assert.Equal(t, "https://example.org/x", NormalizeURL("//example.org/x"))
}

func TestURLShouldBeFollowed(t *testing.T) {
	assert.True(t, URLShouldBeFollowed("https://x/wiki/A", nil, nil))
	assert.False(t, URLShouldBeFollowed("https://x/wiki/A", nil, []string{`/wiki/`}))
	assert.False(t, URLShouldBeFollowed("https://x/w/A", []string{`/wiki/`}, nil))
	assert.False(t, URLShouldBeFollowed("https://x/wiki/A", []string{`(`}, nil))
}

func TestComputeContentHash(t *testing.T) {
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", ComputeContentHash("hello"))
}
