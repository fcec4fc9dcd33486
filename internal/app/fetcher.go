package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"
)

// MaxHops caps the number of redirects followed for one request.
const MaxHops = 15

var (
	ErrDisallowed = errors.New("disallowed by robots.txt")
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// Fetcher returns the body of a document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchError is a network or HTTP-level failure for one URL.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPFetcher fetches documents with net/http, decoding bodies to UTF-8 and
// honouring robots.txt per host.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu     sync.Mutex
	robots map[string]*robotstxt.Group
}

func NewHTTPFetcher(userAgent string, timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	jar, _ := cookiejar.New(nil)
	return &HTTPFetcher{
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= MaxHops {
					return fmt.Errorf("stopped after %d redirects", MaxHops)
				}
				return nil
			},
		},
		userAgent: userAgent,
		logger:    logger,
		robots:    make(map[string]*robotstxt.Group),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, urlStr string) ([]byte, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}
	if group := f.robotsGroup(ctx, u); group != nil && !group.Test(u.EscapedPath()) {
		return nil, &FetchError{URL: urlStr, Err: ErrDisallowed}
	}

	resp, err := f.get(ctx, urlStr)
	if err != nil {
		return nil, &FetchError{URL: urlStr, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: urlStr, StatusCode: resp.StatusCode, Err: ErrHTTPStatus}
	}

	utf8Reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		utf8Reader = resp.Body
	}
	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, &FetchError{URL: urlStr, StatusCode: resp.StatusCode, Err: err}
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, urlStr string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	return f.client.Do(req)
}

// robotsGroup loads robots.txt once per host. A host whose robots.txt cannot
// be loaded is treated as allowing everything.
func (f *HTTPFetcher) robotsGroup(ctx context.Context, u *url.URL) *robotstxt.Group {
	f.mu.Lock()
	defer f.mu.Unlock()

	if group, ok := f.robots[u.Host]; ok {
		return group
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	var group *robotstxt.Group
	resp, err := f.get(ctx, robotsURL)
	if err != nil {
		f.logger.Warn("robots.txt unavailable", slog.String("url", robotsURL), slog.Any("error", err))
	} else {
		data, err := robotstxt.FromResponse(resp)
		resp.Body.Close()
		if err != nil {
			f.logger.Warn("robots.txt unparsable", slog.String("url", robotsURL), slog.Any("error", err))
		} else {
			group = data.FindGroup(f.userAgent)
			f.logger.Debug("robots.txt loaded", slog.String("host", u.Host))
		}
	}
	if ctx.Err() == nil {
		f.robots[u.Host] = group
	}
	return group
}
