package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infobox_scraper/internal/models"
)

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/wiki/Latin", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("<html><body>caf\xe9</body></html>"))
	})
	mux.HandleFunc("/private/page", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secret"))
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/wiki/Latin", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPFetcher(t *testing.T) {
	srv := newSiteServer(t)
	f := NewHTTPFetcher("InfoboxTest/1.0", 5*time.Second, discardLogger())
	ctx := context.Background()

	body, err := f.Fetch(ctx, srv.URL+"/wiki/Latin")
	require.NoError(t, err)
	assert.Contains(t, string(body), "café")

	body, err = f.Fetch(ctx, srv.URL+"/redirect")
	require.NoError(t, err)
	assert.Contains(t, string(body), "café")

	_, err = f.Fetch(ctx, srv.URL+"/private/page")
	assert.ErrorIs(t, err, ErrDisallowed)

	_, err = f.Fetch(ctx, srv.URL+"/wiki/Missing")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.ErrorIs(t, err, ErrHTTPStatus)
}

func TestHTTPFetcher_Cancelled(t *testing.T) {
	srv := newSiteServer(t)
	f := NewHTTPFetcher("InfoboxTest/1.0", 5*time.Second, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, srv.URL+"/wiki/Latin")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollyFetcher(t *testing.T) {
	srv := newSiteServer(t)
	f := NewCollyFetcher("InfoboxTest/1.0", 5*time.Second)
	ctx := context.Background()

	body, err := f.Fetch(ctx, srv.URL+"/wiki/Latin")
	require.NoError(t, err)
	assert.Contains(t, string(body), "caf")

	// Revisits are allowed.
	_, err = f.Fetch(ctx, srv.URL+"/wiki/Latin")
	require.NoError(t, err)

	_, err = f.Fetch(ctx, srv.URL+"/wiki/Missing")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)

	_, err = f.Fetch(ctx, srv.URL+"/private/page")
	assert.Error(t, err)
}

type memoryCache struct {
	docs  map[string]*models.Document
	saves atomic.Int32
}

func (c *memoryCache) GetDocument(_ context.Context, normalizedURL string) (*models.Document, error) {
	return c.docs[normalizedURL], nil
}

func (c *memoryCache) SaveDocument(_ context.Context, doc *models.Document) error {
	c.saves.Add(1)
	c.docs[doc.NormalizedURL] = doc
	return nil
}

func TestCachingFetcher(t *testing.T) {
	const url = "https://www.en.wikipedia.org/wiki/Alpha#Plot"
	const normalized = "https://en.wikipedia.org/wiki/Alpha"

	next := newFakeFetcher(map[string]string{
		url: `<html><head><title>Alpha</title></head><body><p>Alpha is a film.</p></body></html>`,
	})
	cache := &memoryCache{docs: make(map[string]*models.Document)}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	f := NewCachingFetcher(next, cache, time.Hour, "wikipedia", discardLogger())
	f.now = func() time.Time { return now }
	ctx := context.Background()

	body, err := f.Fetch(ctx, url)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Alpha is a film.")
	require.Contains(t, cache.docs, normalized)

	doc := cache.docs[normalized]
	assert.Equal(t, "wikipedia", doc.Source)
	assert.Equal(t, len(body), doc.ContentLength)
	assert.Len(t, doc.ContentHash, 32)

	cached, err := f.Fetch(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, body, cached)
	assert.Equal(t, 1, next.calls[url])

	now = now.Add(2 * time.Hour)
	_, err = f.Fetch(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls[url])
	assert.EqualValues(t, 2, cache.saves.Load())
}

func TestCachingFetcher_PropagatesFetchErrors(t *testing.T) {
	cache := &memoryCache{docs: make(map[string]*models.Document)}
	f := NewCachingFetcher(newFakeFetcher(nil), cache, time.Hour, "wikipedia", discardLogger())

	_, err := f.Fetch(context.Background(), "https://en.wikipedia.org/wiki/Gone")
	var fetchErr *FetchError
	assert.ErrorAs(t, err, &fetchErr)
	assert.Empty(t, cache.docs)
}
