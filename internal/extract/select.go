package extract

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

// groupOrder is the order in which candidate lists are offered.
var groupOrder = []string{media.GroupPrimary, media.GroupAlt1, media.GroupAlt2, media.GroupBackup}

// Classify reports whether a candidate is an HLS playlist or a direct file.
func Classify(c media.SourceCandidate) media.MediaKind {
	if strings.EqualFold(c.Type, "hls") {
		return media.HLS
	}
	if u, err := url.Parse(c.File); err == nil && strings.EqualFold(path.Ext(u.Path), ".m3u8") {
		return media.HLS
	}
	return media.Direct
}

// Selector maps a CandidateGroup to ResolvedLinks.
type Selector struct {
	Name    string // extractor name, prefixed to every display name
	BaseURL string // referer for every link

	// DefaultReferer is sent as a Referer header to hosts matching
	// RefererHosts, or to every host when RefererHosts is empty.
	DefaultReferer string
	RefererHosts   []string

	Expander  Expander            // optional
	Transform func(string) string // optional group label rewrite
	Logger    *log.Logger
}

// Select walks the lists in group order and emits one link per usable
// candidate, or one per variant when an HLS playlist expands.
func (s *Selector) Select(ctx context.Context, g media.CandidateGroup) []media.ResolvedLink {
	var links []media.ResolvedLink
	for _, l := range orderedLists(g) {
		label := l.Label
		if s.Transform != nil {
			label = s.Transform(label)
		}
		for _, c := range l.Sources {
			u, err := url.Parse(strings.TrimSpace(c.File))
			if err != nil || !u.IsAbs() || u.Host == "" {
				continue
			}
			links = append(links, s.linksFor(ctx, c, u, label)...)
		}
	}
	return links
}

func (s *Selector) linksFor(ctx context.Context, c media.SourceCandidate, u *url.URL, label string) []media.ResolvedLink {
	kind := c.Kind
	if kind == media.Unknown {
		kind = Classify(c)
	}

	base := media.ResolvedLink{
		DisplayName:         strings.TrimSpace(s.Name + " " + label),
		GroupLabel:          label,
		URL:                 u.String(),
		Referer:             s.BaseURL,
		Quality:             QualityFromName(c.Label),
		IsStreamingPlaylist: kind == media.HLS,
		Headers:             s.headersFor(u),
	}
	if kind != media.HLS || s.Expander == nil {
		return []media.ResolvedLink{base}
	}

	variants, err := s.Expander.Expand(ctx, base.URL, s.expandHeaders())
	if err != nil {
		s.logger().Debug("playlist not expanded", "url", base.URL, "err", err)
		return []media.ResolvedLink{base}
	}
	if len(variants) == 0 {
		return []media.ResolvedLink{base}
	}

	out := make([]media.ResolvedLink, 0, len(variants))
	for _, v := range variants {
		link := base
		link.URL = v.URL
		link.Quality = v.Height
		if vu, err := url.Parse(v.URL); err == nil {
			link.Headers = s.headersFor(vu)
		}
		out = append(out, link)
	}
	return out
}

func (s *Selector) headersFor(u *url.URL) map[string]string {
	if s.DefaultReferer == "" || !s.needsReferer(u.Hostname()) {
		return nil
	}
	return map[string]string{"Referer": s.DefaultReferer}
}

func (s *Selector) expandHeaders() map[string]string {
	if s.DefaultReferer == "" {
		return nil
	}
	return map[string]string{"Referer": s.DefaultReferer}
}

func (s *Selector) needsReferer(host string) bool {
	if len(s.RefererHosts) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, h := range s.RefererHosts {
		h = strings.ToLower(strings.TrimPrefix(h, "."))
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (s *Selector) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// orderedLists returns the lists with known group labels first, in group
// order, followed by any others in their original order.
func orderedLists(g media.CandidateGroup) []media.CandidateList {
	out := make([]media.CandidateList, 0, len(g.Lists))
	used := make([]bool, len(g.Lists))
	for _, label := range groupOrder {
		for i, l := range g.Lists {
			if !used[i] && l.Label == label {
				out = append(out, l)
				used[i] = true
			}
		}
	}
	for i, l := range g.Lists {
		if !used[i] {
			out = append(out, l)
		}
	}
	return out
}
