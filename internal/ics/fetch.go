package ics

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	appLog "weekcal/internal/log"
)

// Fetcher retrieves a calendar feed over HTTP. Each run is stateless:
// no retries, no response caching. Any transport error or non-success
// status is returned to the caller, which treats it as fatal.
type Fetcher struct {
	client *resty.Client
}

// NewFetcher creates a feed Fetcher. userAgent should be a browser-like
// identifying header; some shared calendar endpoints reject plain
// library clients.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &Fetcher{client: client}
}

// Fetch performs a single GET against the feed URL and returns the raw
// ICS body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("feed URL is empty")
	}

	appLog.Info("feed fetch start", "url", redactURL(url))

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, errors.Wrap(err, "fetch calendar feed")
	}
	if !resp.IsSuccess() {
		return nil, errors.Errorf("fetch calendar feed: unexpected status %s", resp.Status())
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, errors.New("fetch calendar feed: empty response body")
	}

	appLog.Info("feed fetch success",
		"url", redactURL(url),
		"status", resp.StatusCode(),
		"bytes", len(body),
	)
	return body, nil
}

// redactURL hides sensitive parts of a feed URL for logging purposes.
// Shared calendar URLs embed access tokens in the path, so only the
// scheme and host survive.
//
//	https://example.com/owa/calendar/secret-token/calendar.ics
//	-> https://example.com/...(redacted)
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	// Find scheme separator.
	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "feed://...(redacted)"
	}

	// Find next slash after host.
	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}

	host := u[:j]
	return host + redactedSuffix
}
