// Package source provides concrete SourceFetcher implementations. The
// resilience core only ever sees the hook interface; connectors live
// here so the daemon has something real to call.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Endpoint describes one upstream HTTP API.
type Endpoint struct {
	URL     string
	Headers map[string]string
}

// HTTPFetcher fetches JSON payloads from per-source REST endpoints.
// Request params are sent as query parameters. Rate-limit and block
// responses surface as plain errors for the retry loop upstream.
type HTTPFetcher struct {
	endpoints map[string]Endpoint
	client    *http.Client
}

// NewHTTPFetcher creates a fetcher over the given source endpoints.
func NewHTTPFetcher(endpoints map[string]Endpoint, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{
		endpoints: endpoints,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Fetch implements the orchestrator hook for HTTP sources.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string, params map[string]any) (any, error) {
	endpoint, ok := f.endpoints[source]
	if !ok {
		return nil, fmt.Errorf("no endpoint configured for source %s", source)
	}

	u, err := url.Parse(endpoint.URL)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint url: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range endpoint.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%s rate limited (429), retry after: %s", source, resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%s access blocked (403)", source)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s http %d: %s", source, resp.StatusCode, string(body))
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return payload, nil
}
