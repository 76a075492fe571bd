// Package httputil provides a security-hardened HTTP client and input sanitization utilities.
package httputil

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// UserAgent is sent with every outbound request.
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/121.0"

const (
	maxPageBytes = 5 * 1024 * 1024
	maxJSONBytes = 10 * 1024 * 1024
)

// NewClient creates a hardened HTTP client with secure defaults.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			DisableCompression:  false,
			MaxIdleConnsPerHost: 5,
		},
	}
}

// SetBrowserHeaders sets the headers a desktop browser would send.
func SetBrowserHeaders(req *http.Request, accept string) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}

// Get performs a GET request with standard browser-like headers plus any
// extra headers given. The caller closes the body.
func Get(ctx context.Context, client *http.Client, url string, headers map[string]string) (*http.Response, error) {
	return get(ctx, client, url, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", headers)
}

// GetBody performs Get and returns the body of a 200 response.
func GetBody(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	resp, err := Get(ctx, client, url, headers)
	if err != nil {
		return nil, err
	}
	return readOK(resp, url, maxPageBytes)
}

// GetJSON performs a GET request with JSON accept header.
func GetJSON(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	resp, err := get(ctx, client, url, "application/json", headers)
	if err != nil {
		return nil, err
	}
	return readOK(resp, url, maxJSONBytes)
}

func get(ctx context.Context, client *http.Client, url, accept string, headers map[string]string) (*http.Response, error) {
	if err := ValidateURL(url); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	SetBrowserHeaders(req, accept)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func readOK(resp *http.Response, url string, limit int64) ([]byte, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return body, nil
}
