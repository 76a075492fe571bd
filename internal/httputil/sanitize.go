package httputil

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const maxPageIDLen = 128

var (
	// pageIDPattern matches the opaque trailing segment of an embed URL,
	// e.g. "dcPOVRE57YOT".
	pageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	// contentIDPattern matches site paths such as "movie/free-the-exorcist-hd-75043".
	contentIDPattern = regexp.MustCompile(`^[a-z]+/[A-Za-z0-9-]+$`)

	hostLabelPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)
)

// ValidateURL checks that rawURL is an absolute https URL without
// credentials. Every embed, stream and subtitle URL passes through here
// before a request is made or a player is started.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("only HTTPS URLs are allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	if u.User != nil {
		return fmt.Errorf("URL carries credentials")
	}
	return nil
}

// ValidateEmbedHost checks the host part of an embed URL, with or without
// a port. IP literals are accepted.
func ValidateEmbedHost(host string) error {
	if host == "" {
		return fmt.Errorf("empty embed host")
	}
	name := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("bad port in embed host %q", host)
		}
		name = h
	}
	if net.ParseIP(name) != nil {
		return nil
	}
	if len(name) > 253 {
		return fmt.Errorf("embed host too long: %d characters", len(name))
	}
	for _, label := range strings.Split(strings.TrimSuffix(name, "."), ".") {
		if !hostLabelPattern.MatchString(label) {
			return fmt.Errorf("invalid embed host %q", host)
		}
	}
	return nil
}

// ValidatePageID checks a page id before it is sent to the resolver or
// spliced into an embed route.
func ValidatePageID(id string) error {
	if id == "" {
		return fmt.Errorf("page ID cannot be empty")
	}
	if len(id) > maxPageIDLen {
		return fmt.Errorf("page ID too long: %d characters", len(id))
	}
	if !pageIDPattern.MatchString(id) {
		return fmt.Errorf("page ID contains invalid characters: %q", id)
	}
	return nil
}

// ValidateContentID checks a "<kind>/<slug>" content path.
func ValidateContentID(id string) error {
	if !contentIDPattern.MatchString(id) {
		return fmt.Errorf("invalid content ID: %q", id)
	}
	return nil
}

// ValidateNumericID checks episode and server ids, which the site keeps
// purely numeric.
func ValidateNumericID(id string) error {
	if id == "" {
		return fmt.Errorf("numeric ID cannot be empty")
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return fmt.Errorf("expected numeric ID, got %q", id)
		}
	}
	return nil
}

// SanitizeFilename reduces a title or subtitle label to one path element.
// Directory parts are dropped and characters that are unsafe in file names
// become '_'.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case strings.ContainsRune(`:*?"<>|`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(strings.ReplaceAll(name, "..", "_"))

	if name == "" || name == "." || name == "_" {
		return "untitled"
	}
	return name
}

// SafeDownloadPath joins a sanitized filename onto dir and makes sure the
// result stays inside it.
func SafeDownloadPath(dir, filename string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	full := filepath.Join(absDir, SanitizeFilename(filename))
	if filepath.Dir(full) != absDir {
		return "", fmt.Errorf("path %q escapes %q", full, absDir)
	}
	return full, nil
}

// BuildURL joins base and path segments, escaping each segment.
func BuildURL(base string, pathSegments ...string) string {
	u := strings.TrimRight(base, "/")
	for _, seg := range pathSegments {
		u += "/" + url.PathEscape(seg)
	}
	return u
}
