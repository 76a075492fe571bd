package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

var embedPrefixPattern = regexp.MustCompile(`^embed-\d+$`)

// AjaxExtractor resolves embeds through the host's getSources HTTP endpoint.
// The client key hidden in the embed page is the decryption secret.
type AjaxExtractor struct {
	client   *http.Client
	selector *Selector
	logger   *log.Logger
}

// NewAjax creates an AjaxExtractor. A nil client selects the default
// hardened client.
func NewAjax(client *http.Client, sel *Selector, logger *log.Logger) *AjaxExtractor {
	if client == nil {
		client = httputil.NewClient()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AjaxExtractor{client: client, selector: sel, logger: logger}
}

func (a *AjaxExtractor) Name() string { return "ajax" }

// CanExtract accepts https embed URLs shaped like /embed-N/.../<id>.
func (a *AjaxExtractor) CanExtract(embedURL string) bool {
	if httputil.ValidateURL(embedURL) != nil {
		return false
	}
	u, err := url.Parse(embedURL)
	if err != nil {
		return false
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	return embedPrefixPattern.MatchString(first)
}

// Extract resolves an embed URL into links and subtitles.
func (a *AjaxExtractor) Extract(ctx context.Context, embedURL string) (*media.Resolution, error) {
	if err := httputil.ValidateURL(embedURL); err != nil {
		return nil, fmt.Errorf("invalid embed URL: %w", err)
	}

	domain, embedPrefix, sourceID, err := parseEmbedURL(embedURL)
	if err != nil {
		return nil, fmt.Errorf("parsing embed URL: %w", err)
	}

	// Step 1: fetch the embed page for the client key
	embedPageURL := fmt.Sprintf("https://%s/%s/v3/e-1/%s?z=", domain, embedPrefix, sourceID)
	embedHTML, err := httputil.GetBody(ctx, a.client, embedPageURL, map[string]string{
		"Referer": a.referer(),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching embed page: %w", err)
	}

	clientKey, err := extractClientKey(string(embedHTML))
	if err != nil {
		return nil, fmt.Errorf("extracting client key: %w", err)
	}

	// Step 2: call getSources, falling back to the legacy ajax route
	headers := map[string]string{
		"Referer":          embedURL,
		"X-Requested-With": "XMLHttpRequest",
	}
	endpoints := []string{
		fmt.Sprintf("https://%s/%s/v3/e-1/getSources?id=%s&_k=%s",
			domain, embedPrefix, url.QueryEscape(sourceID), url.QueryEscape(clientKey)),
		fmt.Sprintf("https://%s/ajax/%s/getSources?id=%s",
			domain, embedPrefix, url.QueryEscape(sourceID)),
	}

	var body []byte
	for _, ep := range endpoints {
		body, err = httputil.GetJSON(ctx, a.client, ep, headers)
		if err == nil {
			break
		}
		a.logger.Debug("getSources failed", "url", ep, "err", err)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching sources: %w", err)
	}

	// Step 3: decode, decrypting with the client key
	d, err := DecodeSources(body, []byte(clientKey))
	if err != nil {
		return nil, err
	}
	for _, e := range d.Dropped {
		a.logger.Warn("candidate list dropped", "err", e)
	}

	res := &media.Resolution{Subtitles: d.Subtitles, Extractor: a.Name()}
	if a.selector != nil {
		res.Links = a.selector.Select(ctx, d.Group)
	}
	a.logger.Debug("resolved", "candidates", d.Group.Len(), "links", len(res.Links), "subtitles", len(res.Subtitles))
	return res, nil
}

func (a *AjaxExtractor) referer() string {
	if a.selector != nil && a.selector.BaseURL != "" {
		return strings.TrimRight(a.selector.BaseURL, "/") + "/"
	}
	return ""
}

// parseEmbedURL extracts domain, embed prefix, and source ID from an embed URL.
// Example: https://streameeeeee.site/embed-1/v3/e-1/AbCdEf?z= -> ("streameeeeee.site", "embed-1", "AbCdEf")
func parseEmbedURL(embedURL string) (domain, embedPrefix, sourceID string, err error) {
	u, err := url.Parse(embedURL)
	if err != nil {
		return "", "", "", fmt.Errorf("parsing URL: %w", err)
	}
	domain = u.Host

	path := strings.TrimPrefix(u.Path, "/")
	parts := strings.Split(path, "/")
	if domain == "" || path == "" {
		return "", "", "", fmt.Errorf("empty URL path")
	}
	if err := httputil.ValidateEmbedHost(domain); err != nil {
		return "", "", "", err
	}

	embedPrefix = parts[0]
	if !embedPrefixPattern.MatchString(embedPrefix) {
		embedPrefix = "embed-2"
	}

	sourceID = PageID(embedURL)
	if err := httputil.ValidatePageID(sourceID); err != nil {
		return "", "", "", fmt.Errorf("source ID of %q: %w", embedURL, err)
	}
	return domain, embedPrefix, sourceID, nil
}
