package app

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-shiori/go-readability"

	"infobox_scraper/internal/models"
	urlqueue "infobox_scraper/internal/url_queue"
)

// PageCache stores fetched pages by normalized URL.
type PageCache interface {
	GetDocument(ctx context.Context, normalizedURL string) (*models.Document, error)
	SaveDocument(ctx context.Context, doc *models.Document) error
}

// CachingFetcher serves pages younger than MaxAge from the cache and stores
// everything else it fetches. Cache failures are logged and never fail the
// fetch.
type CachingFetcher struct {
	Next   Fetcher
	Cache  PageCache
	MaxAge time.Duration
	Source string
	Logger *slog.Logger

	now func() time.Time
}

func NewCachingFetcher(next Fetcher, cache PageCache, maxAge time.Duration, source string, logger *slog.Logger) *CachingFetcher {
	return &CachingFetcher{Next: next, Cache: cache, MaxAge: maxAge, Source: source, Logger: logger, now: time.Now}
}

func (f *CachingFetcher) Fetch(ctx context.Context, urlStr string) ([]byte, error) {
	normalized := urlqueue.NormalizeURL(urlStr)
	now := f.now()

	cached, err := f.Cache.GetDocument(ctx, normalized)
	if err != nil {
		f.Logger.Warn("page cache lookup failed", slog.String("url", normalized), slog.Any("error", err))
	}
	if cached != nil && now.Sub(time.Unix(cached.LastScraped, 0)) < f.MaxAge {
		f.Logger.Debug("page cache hit", slog.String("url", normalized))
		return []byte(cached.HTMLContent), nil
	}

	body, err := f.Next.Fetch(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		NormalizedURL: normalized,
		URL:           urlStr,
		Source:        f.Source,
		HTMLContent:   string(body),
		ContentHash:   urlqueue.ComputeContentHash(string(body)),
		FirstScraped:  now.Unix(),
		LastScraped:   now.Unix(),
		ContentLength: len(body),
	}
	if cached != nil && cached.ContentHash == doc.ContentHash {
		f.Logger.Debug("page unchanged", slog.String("url", normalized))
	}
	summarize(doc, body, urlStr)

	if err := f.Cache.SaveDocument(ctx, doc); err != nil {
		f.Logger.Warn("page cache save failed", slog.String("url", normalized), slog.Any("error", err))
	}
	return body, nil
}

// summarize fills the readability title and excerpt when they can be found.
func summarize(doc *models.Document, body []byte, pageURL string) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return
	}
	doc.Title = article.Title
	doc.Excerpt = article.Excerpt
}
