// Package subtitle picks subtitle tracks from a resolution and stages them
// in a private temp directory for players and downloads.
package subtitle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

const maxSubtitleBytes = 10 * 1024 * 1024

// Filter returns the tracks whose label mentions language (case-insensitive).
// An empty language keeps every track.
func Filter(tracks []media.SubtitleTrack, language string) []media.SubtitleTrack {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		return tracks
	}

	var matched []media.SubtitleTrack
	for _, tr := range tracks {
		if strings.Contains(strings.ToLower(tr.Label), lang) {
			matched = append(matched, tr)
		}
	}
	return matched
}

// BestMatch returns the preferred track for language, or nil. A track whose
// language is exactly the requested one wins over partial matches, and
// plain tracks win over SDH/forced variants.
func BestMatch(tracks []media.SubtitleTrack, language string) *media.SubtitleTrack {
	filtered := Filter(tracks, language)
	if len(filtered) == 0 {
		return nil
	}

	lang := strings.ToLower(strings.TrimSpace(language))
	best, bestScore := 0, -1
	for i, tr := range filtered {
		score := 0
		if strings.EqualFold(tr.Language(), lang) {
			score += 2
		}
		label := strings.ToLower(tr.Label)
		if !strings.Contains(label, "sdh") && !strings.Contains(label, "forced") {
			score++
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	tr := filtered[best]
	return &tr
}

// TempDir is a randomized directory holding downloaded subtitle files.
type TempDir struct {
	path   string
	client *http.Client
}

// NewTempDir creates the directory. A nil client selects the default
// hardened client.
func NewTempDir(client *http.Client) (*TempDir, error) {
	dir, err := os.MkdirTemp("", "flixres-subs-*")
	if err != nil {
		return nil, fmt.Errorf("creating subtitle temp dir: %w", err)
	}
	if client == nil {
		client = httputil.NewClient()
	}
	return &TempDir{path: dir, client: client}, nil
}

// Path returns the directory path.
func (t *TempDir) Path() string { return t.path }

// Cleanup removes the directory and everything in it.
func (t *TempDir) Cleanup() {
	if t.path != "" {
		os.RemoveAll(t.path)
	}
}

// Download fetches tr into the directory and returns the local path.
// headers are sent with the request, e.g. the Referer the CDN expects.
func (t *TempDir) Download(ctx context.Context, tr media.SubtitleTrack, headers map[string]string) (string, error) {
	if err := httputil.ValidateURL(tr.URL); err != nil {
		return "", fmt.Errorf("invalid subtitle URL: %w", err)
	}

	localPath, err := httputil.SafeDownloadPath(t.path, fileName(tr))
	if err != nil {
		return "", err
	}

	resp, err := httputil.Get(ctx, t.client, tr.URL, headers)
	if err != nil {
		return "", fmt.Errorf("downloading subtitle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("subtitle download returned status %d", resp.StatusCode)
	}

	f, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("creating subtitle file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxSubtitleBytes)); err != nil {
		return "", fmt.Errorf("writing subtitle file: %w", err)
	}
	return localPath, nil
}

// fileName names the local copy after the label, keeping the URL's
// extension: "English - SDH" + ".../x.vtt" -> "English - SDH.vtt".
func fileName(tr media.SubtitleTrack) string {
	ext := ".vtt"
	if u, err := url.Parse(tr.URL); err == nil {
		if e := path.Ext(u.Path); e != "" && len(e) <= 5 {
			ext = e
		}
	}
	name := strings.TrimSpace(tr.Label)
	if name == "" {
		name = "subtitle"
	}
	return httputil.SanitizeFilename(name + ext)
}
