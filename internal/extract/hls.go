package extract

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
)

// Variant is one rendition listed in an HLS master playlist.
type Variant struct {
	URL       string
	Height    int
	Bandwidth int
}

// Expander turns a master playlist into its variants. An empty result means
// the playlist should be offered as a single link.
type Expander interface {
	Expand(ctx context.Context, playlistURL string, headers map[string]string) ([]Variant, error)
}

// HLSExpander fetches master playlists over HTTP.
type HLSExpander struct {
	client *http.Client
}

// NewHLSExpander returns an expander using client, or the default hardened
// client when client is nil.
func NewHLSExpander(client *http.Client) *HLSExpander {
	if client == nil {
		client = httputil.NewClient()
	}
	return &HLSExpander{client: client}
}

func (e *HLSExpander) Expand(ctx context.Context, playlistURL string, headers map[string]string) ([]Variant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httputil.SetBrowserHeaders(req, "*/*")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, playlistURL)
	}

	base, err := url.Parse(playlistURL)
	if err != nil {
		return nil, fmt.Errorf("parsing playlist URL: %w", err)
	}
	return ParseMasterPlaylist(io.LimitReader(resp.Body, 2*1024*1024), base)
}

var (
	resolutionAttr = regexp.MustCompile(`RESOLUTION=(\d+)x(\d+)`)
	bandwidthAttr  = regexp.MustCompile(`BANDWIDTH=(\d+)`)
)

// ParseMasterPlaylist reads #EXT-X-STREAM-INF entries and the URI line that
// follows each one. Relative URIs are resolved against base. A media
// playlist yields no variants.
func ParseMasterPlaylist(r io.Reader, base *url.URL) ([]Variant, error) {
	var variants []Variant
	var pending *Variant

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			v := Variant{}
			if m := resolutionAttr.FindStringSubmatch(line); m != nil {
				v.Height, _ = strconv.Atoi(m[2])
			}
			if m := bandwidthAttr.FindStringSubmatch(line); m != nil {
				v.Bandwidth, _ = strconv.Atoi(m[1])
			}
			pending = &v
		case strings.HasPrefix(line, "#"):
			continue
		case pending != nil:
			ref, err := url.Parse(line)
			if err != nil {
				pending = nil
				continue
			}
			pending.URL = base.ResolveReference(ref).String()
			variants = append(variants, *pending)
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	return variants, nil
}
