package urlqueue

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"infobox_scraper/internal/models"
)

// URLQueue is a FIFO of listing entries that drops repeated URLs.
type URLQueue struct {
	seen     map[string]bool
	entries  []models.Entry
	MaxPages int
	mu       sync.Mutex
}

func NewURLQueue(maxPages int) *URLQueue {
	return &URLQueue{
		seen:     make(map[string]bool),
		MaxPages: maxPages,
	}
}

// Add enqueues e unless its normalized URL was already added or the queue is
// full.
func (q *URLQueue) Add(e models.Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.MaxPages > 0 && len(q.seen) >= q.MaxPages {
		return false
	}
	normalized := NormalizeURL(e.URL)
	if q.seen[normalized] {
		return false
	}
	q.seen[normalized] = true
	q.entries = append(q.entries, e)
	return true
}

// Drain removes and returns every queued entry.
func (q *URLQueue) Drain() []models.Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.entries
	q.entries = nil
	return out
}

func NormalizeURL(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}

	parsed.Fragment = ""
	parsed.Host = strings.TrimPrefix(parsed.Host, "www.")
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}

	return parsed.String()
}

// ExtractListing selects the listing links in body, resolves them against
// baseURL and numbers the kept ones from 1 in document order.
func ExtractListing(body []byte, baseURL, selector string, followPatterns, excludePatterns []string, maxPages int) ([]models.Entry, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	queue := NewURLQueue(maxPages)
	index := 0
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		link := base.ResolveReference(ref).String()
		if !URLShouldBeFollowed(link, followPatterns, excludePatterns) {
			return
		}
		title := strings.TrimSpace(s.Text())
		if t, ok := s.Attr("title"); ok && title == "" {
			title = t
		}
		if queue.Add(models.Entry{Index: index + 1, Title: title, URL: link}) {
			index++
		}
	})

	return queue.Drain(), nil
}

func ComputeContentHash(content string) string {
	hash := md5.Sum([]byte(content))
	return fmt.Sprintf("%x", hash)
}

func URLShouldBeFollowed(urlStr string, followPatterns, excludePatterns []string) bool {
	for _, pattern := range excludePatterns {
		if URLMatchesPattern(urlStr, pattern) {
			return false
		}
	}

	if len(followPatterns) == 0 {
		return true
	}

	for _, pattern := range followPatterns {
		if URLMatchesPattern(urlStr, pattern) {
			return true
		}
	}

	return false
}

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

// URLMatchesPattern reports whether urlStr matches the regular expression
// pattern. Invalid patterns never match.
func URLMatchesPattern(urlStr string, pattern string) bool {
	patternMu.Lock()
	re, ok := patternCache[pattern]
	if !ok {
		re, _ = regexp.Compile(pattern)
		patternCache[pattern] = re
	}
	patternMu.Unlock()

	return re != nil && re.MatchString(urlStr)
}
