package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

// Sflix implements the Provider interface for Sflix-style sites.
type Sflix struct {
	base   string // e.g., "https://sflix.to"
	client *http.Client
}

// NewSflix creates a new Sflix provider. A nil client selects the default
// hardened client.
func NewSflix(base string, client *http.Client) *Sflix {
	if client == nil {
		client = httputil.NewClient()
	}
	return &Sflix{
		base:   strings.TrimRight(base, "/"),
		client: client,
	}
}

// GetServers returns available streaming servers for content.
func (f *Sflix) GetServers(ctx context.Context, id string, episodeID string) ([]media.Server, error) {
	var url string

	if episodeID != "" {
		// TV episode
		if err := httputil.ValidateNumericID(episodeID); err != nil {
			return nil, fmt.Errorf("invalid episode ID: %w", err)
		}
		url = fmt.Sprintf("%s/ajax/v2/episode/servers/%s", f.base, episodeID)
	} else {
		// Movie
		if err := httputil.ValidateContentID(id); err != nil {
			return nil, fmt.Errorf("invalid content ID: %w", err)
		}
		numID := extractNumericID(id)
		if numID == "" {
			return nil, fmt.Errorf("cannot extract numeric ID from %q", id)
		}
		url = fmt.Sprintf("%s/ajax/movie/episodes/%s", f.base, numID)
	}

	doc, err := f.fetchDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("getting servers: %w", err)
	}

	return parseServers(doc), nil
}

// GetEmbedURL returns the embed URL for a given server.
func (f *Sflix) GetEmbedURL(ctx context.Context, serverID string) (string, error) {
	if err := httputil.ValidateNumericID(serverID); err != nil {
		return "", fmt.Errorf("invalid server ID: %w", err)
	}

	// get_link is the current route; episode/sources answers on older mirrors.
	var lastErr error
	routes := [][]string{
		{"ajax", "get_link", serverID},
		{"ajax", "episode", "sources", serverID},
	}
	for _, segments := range routes {
		url := httputil.BuildURL(f.base, segments...)
		link, err := f.fetchLink(ctx, url)
		if err == nil {
			return link, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("getting embed URL for server %s: %w", serverID, lastErr)
}

func (f *Sflix) fetchLink(ctx context.Context, url string) (string, error) {
	body, err := httputil.GetJSON(ctx, f.client, url, map[string]string{
		"Referer":          f.base + "/",
		"X-Requested-With": "XMLHttpRequest",
	})
	if err != nil {
		return "", err
	}

	// {"type":"iframe","link":"https://...","sources":[],"tracks":[],"title":""}
	var result struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parsing embed response: %w", err)
	}
	if err := httputil.ValidateURL(result.Link); err != nil {
		return "", fmt.Errorf("no usable embed URL: %w", err)
	}
	return result.Link, nil
}

// fetchDocument fetches a URL and parses it into a goquery Document.
func (f *Sflix) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := httputil.GetBody(ctx, f.client, url, map[string]string{
		"Referer":          f.base + "/",
		"X-Requested-With": "XMLHttpRequest",
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	return doc, nil
}
