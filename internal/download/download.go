// Package download saves a resolved link to disk with ffmpeg.
// ffmpeg runs from an explicit argument slice and the output path is
// validated against directory traversal.
package download

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/firmanjml/cs3-ext-flixhq/internal/httputil"
	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

// Request describes one download.
type Request struct {
	Link      media.ResolvedLink
	Title     string
	OutputDir string
	SubFile   string // local subtitle path, optional
}

// Download fetches r.Link into r.OutputDir and returns the written path.
// A partial file is removed when ffmpeg fails.
func Download(ctx context.Context, r Request) (string, error) {
	if err := httputil.ValidateURL(r.Link.URL); err != nil {
		return "", fmt.Errorf("refusing to download: %w", err)
	}

	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	absDir, err := filepath.Abs(r.OutputDir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	outputPath, err := OutputPath(absDir, r)
	if err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, ffmpegArgs(r, outputPath)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fmt.Fprintf(os.Stderr, "Downloading to: %s\n", outputPath)

	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("ffmpeg download failed: %w", err)
	}
	return outputPath, nil
}

// OutputPath returns the file ffmpeg writes for r inside dir.
func OutputPath(dir string, r Request) (string, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = r.Link.DisplayName
	}
	if r.Link.Quality > 0 {
		title = fmt.Sprintf("%s %dp", title, r.Link.Quality)
	}
	p, err := httputil.SafeDownloadPath(dir, httputil.SanitizeFilename(title)+".mkv")
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}
	return p, nil
}

func ffmpegArgs(r Request, outputPath string) []string {
	args := []string{
		"-y",
		"-user_agent", httputil.UserAgent,
	}
	if h := headerBlock(r.Link); h != "" {
		args = append(args, "-headers", h)
	}
	args = append(args, "-i", r.Link.URL)

	if r.SubFile != "" {
		args = append(args,
			"-i", r.SubFile,
			"-c:s", "srt",
		)
	}

	args = append(args,
		"-c:v", "copy",
		"-c:a", "copy",
	)

	if r.SubFile != "" {
		args = append(args,
			"-map", "0:v",
			"-map", "0:a",
			"-map", "1:s",
		)
	}

	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = r.Link.DisplayName
	}
	return append(args,
		"-metadata", "title="+title,
		outputPath,
	)
}

// headerBlock renders headers the way ffmpeg's -headers option expects:
// CRLF-terminated "Name: value" lines.
func headerBlock(l media.ResolvedLink) string {
	headers := l.RequestHeaders()
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k + ": " + headers[k] + "\r\n")
	}
	return b.String()
}
