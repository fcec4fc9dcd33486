package app

import (
	"context"
	"time"

	"github.com/gocolly/colly"
)

// CollyFetcher fetches documents through a colly collector. colly detects
// the body charset and checks robots.txt itself.
type CollyFetcher struct {
	base *colly.Collector
}

func NewCollyFetcher(userAgent string, timeout time.Duration) *CollyFetcher {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
	)
	c.IgnoreRobotsTxt = false
	c.SetRequestTimeout(timeout)
	return &CollyFetcher{base: c}
}

type collyResult struct {
	body   []byte
	status int
	err    error
}

func (f *CollyFetcher) Fetch(ctx context.Context, urlStr string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.base.Clone()
	done := make(chan collyResult, 1)
	go func() {
		var res collyResult
		c.OnResponse(func(r *colly.Response) {
			res.body = r.Body
			res.status = r.StatusCode
		})
		c.OnError(func(r *colly.Response, err error) {
			if r != nil {
				res.status = r.StatusCode
			}
			res.err = err
		})
		if err := c.Visit(urlStr); err != nil && res.err == nil {
			res.err = err
		}
		done <- res
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, &FetchError{URL: urlStr, StatusCode: res.status, Err: res.err}
		}
		return res.body, nil
	}
}
