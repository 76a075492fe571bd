// Package provider lists the streaming servers of a content page and turns
// them into embed URLs ready for extraction.
package provider

import (
	"context"
	"strings"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

// DefaultAllowedServers are the servers whose embeds the resolver handles.
var DefaultAllowedServers = []string{"upcloud", "vidcloud", "streamlare"}

// Provider is the interface that content providers must implement.
type Provider interface {
	// GetServers returns available streaming servers.
	// For movies, episodeID is empty.
	GetServers(ctx context.Context, id string, episodeID string) ([]media.Server, error)

	// GetEmbedURL returns the embed URL for a given server.
	GetEmbedURL(ctx context.Context, serverID string) (string, error)
}

// FilterServers keeps the servers whose name is in allowed, compared
// case-insensitively. Duplicate server IDs are dropped. An empty allowed
// list selects DefaultAllowedServers.
func FilterServers(servers []media.Server, allowed []string) []media.Server {
	if len(allowed) == 0 {
		allowed = DefaultAllowedServers
	}
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[strings.ToLower(strings.TrimSpace(a))] = true
	}

	seen := make(map[string]bool)
	var out []media.Server
	for _, s := range servers {
		if !ok[strings.ToLower(strings.TrimSpace(s.Name))] || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

// Mirrors lists the allowed servers for a content item and resolves each
// one to its embed URL. Servers whose embed URL cannot be fetched are
// skipped; an error is returned only when the server list itself fails.
func Mirrors(ctx context.Context, p Provider, id, episodeID string, allowed []string) ([]media.Mirror, error) {
	servers, err := p.GetServers(ctx, id, episodeID)
	if err != nil {
		return nil, err
	}

	var mirrors []media.Mirror
	for _, s := range FilterServers(servers, allowed) {
		if err := ctx.Err(); err != nil {
			return mirrors, err
		}
		embed, err := p.GetEmbedURL(ctx, s.ID)
		if err != nil {
			continue
		}
		mirrors = append(mirrors, media.Mirror{Server: s, EmbedURL: embed})
	}
	return mirrors, nil
}
