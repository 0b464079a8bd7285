package sitemap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// fetcher retrieves sitemap and robots.txt documents with bounded
// retries. Transient failures are retried with a fixed backoff.
type fetcher struct {
	client      *http.Client
	userAgent   string
	maxRetries  int
	retryDelay  time.Duration
	maxBodySize int64
}

// fetch retrieves the document at rawURL. It returns the body for 2xx
// responses and an error otherwise. Retries cover network errors and
// 5xx responses; client errors like 404 fail immediately.
func (f *fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}

		body, retryable, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}

func (f *fetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/xml,text/xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("server error: %s", resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, true, err
	}

	return body, false, nil
}
