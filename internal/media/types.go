// Package media defines shared types for resolved streams and their sources.
package media

import "strings"

// MediaKind classifies how a candidate source is delivered.
type MediaKind int

const (
	Unknown MediaKind = iota
	HLS
	Direct
)

func (k MediaKind) String() string {
	switch k {
	case HLS:
		return "hls"
	case Direct:
		return "direct"
	default:
		return "unknown"
	}
}

// SourceCandidate is one entry of one candidate list, before ranking.
type SourceCandidate struct {
	File  string // playable URL as sent by the resolver
	Type  string // declared type, e.g. "hls"
	Label string // quality label, e.g. "1080p"
	Kind  MediaKind
}

// Group labels, in priority order.
const (
	GroupPrimary = "source 1"
	GroupAlt1    = "source 2"
	GroupAlt2    = "source 3"
	GroupBackup  = "source backup"
)

// CandidateList is a named list of candidates delivering the same stream.
type CandidateList struct {
	Label   string
	Sources []SourceCandidate
}

// CandidateGroup holds the alternate delivery paths for one logical stream.
// Lists are ordered by preference; the first list is preferred.
type CandidateGroup struct {
	Lists []CandidateList
}

// Len returns the total number of candidates across all lists.
func (g CandidateGroup) Len() int {
	n := 0
	for _, l := range g.Lists {
		n += len(l.Sources)
	}
	return n
}

// SubtitleTrack is a subtitle file attached to a resolution.
type SubtitleTrack struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Language returns the language portion of the label,
// e.g. "English - SDH" -> "English".
func (s SubtitleTrack) Language() string {
	lang, _, _ := strings.Cut(s.Label, " - ")
	return strings.TrimSpace(lang)
}

// ResolvedLink is a playable link handed to the caller.
type ResolvedLink struct {
	DisplayName         string            `json:"display_name"`
	GroupLabel          string            `json:"group_label"`
	URL                 string            `json:"url"`
	Referer             string            `json:"referer"`
	Quality             int               `json:"quality"`
	IsStreamingPlaylist bool              `json:"is_m3u8"`
	Headers             map[string]string `json:"headers,omitempty"`
}

// RequestHeaders returns the headers a client must send to fetch the link.
// Referer defaults to the link's Referer when Headers does not set one.
func (l ResolvedLink) RequestHeaders() map[string]string {
	h := make(map[string]string, len(l.Headers)+1)
	for k, v := range l.Headers {
		h[k] = v
	}
	if _, ok := h["Referer"]; !ok && l.Referer != "" {
		h["Referer"] = l.Referer
	}
	return h
}

// Resolution is the combined output of resolving one embed.
type Resolution struct {
	Links     []ResolvedLink  `json:"links"`
	Subtitles []SubtitleTrack `json:"subtitles"`
	Extractor string          `json:"extractor,omitempty"`
}

// Empty reports whether nothing usable was resolved.
func (r *Resolution) Empty() bool {
	return r == nil || (len(r.Links) == 0 && len(r.Subtitles) == 0)
}

// Server represents a streaming server option on the content site.
type Server struct {
	Name string // e.g. "Vidcloud", "UpCloud"
	ID   string // data-id
}

// Mirror is a server together with its embed URL, ready to resolve.
type Mirror struct {
	Server   Server
	EmbedURL string
}
