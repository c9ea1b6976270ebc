// Utilities for probing remote resource headers.
package shared

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// Head performs a HEAD request against url and returns the response headers.
func Head(ctx context.Context, client *http.Client, url string) (http.Header, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("head request failed: %w", err)
	}
	defer resp.Body.Close()

	return resp.Header, nil
}

// ContentType probes the Content-Type of url.
func ContentType(ctx context.Context, client *http.Client, url string) (string, error) {
	headers, err := Head(ctx, client, url)
	if err != nil {
		return "", err
	}
	return headers.Get("Content-Type"), nil
}

// ContentLength probes the Content-Length of url. Returns 0 when the header
// is absent or unparseable.
func ContentLength(ctx context.Context, client *http.Client, url string) (int64, error) {
	headers, err := Head(ctx, client, url)
	if err != nil {
		return 0, err
	}

	size, err := strconv.ParseInt(headers.Get("Content-Length"), 10, 64)
	if err != nil {
		return 0, nil
	}
	return size, nil
}
