package provider

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

// parseServers extracts server options from a servers fragment.
// TV episode endpoints use data-id, movie endpoints may use data-linkid.
func parseServers(doc *goquery.Document) []media.Server {
	var servers []media.Server

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		dataID := strings.TrimSpace(s.AttrOr("data-id", ""))
		if dataID == "" {
			dataID = strings.TrimSpace(s.AttrOr("data-linkid", ""))
		}
		if dataID == "" {
			return
		}

		name := strings.TrimSpace(s.Find("span").First().Text())
		if name == "" {
			name = strings.TrimSpace(s.AttrOr("title", ""))
		}
		if name == "" {
			name = strings.TrimSpace(s.Text())
		}
		name = strings.TrimPrefix(name, "Server ")

		servers = append(servers, media.Server{
			Name: name,
			ID:   dataID,
		})
	})

	return servers
}

// ContentID normalizes a content page URL or path into a content ID.
// e.g., "https://sflix.to/movie/free-the-exorcist-hd-75043" -> "movie/free-the-exorcist-hd-75043"
func ContentID(ref string) string {
	if u, err := url.Parse(strings.TrimSpace(ref)); err == nil && u.Host != "" {
		ref = u.Path
	}
	return extractID(strings.TrimSpace(ref))
}

// extractID extracts the content ID from a URL path.
// e.g., "/movie/free-the-exorcist-hd-75043" -> "movie/free-the-exorcist-hd-75043"
func extractID(urlPath string) string {
	id := strings.TrimPrefix(urlPath, "/")
	if idx := strings.Index(id, "?"); idx != -1 {
		id = id[:idx]
	}
	return id
}

// extractNumericID extracts the trailing numeric ID from a path.
// e.g., "movie/free-the-exorcist-hd-75043" -> "75043"
func extractNumericID(id string) string {
	id = extractID(id)
	parts := strings.Split(id, "-")
	last := parts[len(parts)-1]
	if _, err := strconv.Atoi(last); err == nil {
		return last
	}
	return ""
}
