package extract

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// keyLocation is one place an embed page may hide its client key.
type keyLocation struct {
	name    string
	pattern *regexp.Regexp
	// key pulls the key out of the matched markup.
	key func(match string) string
}

var quotedValue = regexp.MustCompile(`"([a-zA-Z0-9]+)"`)

func firstQuoted(match string) string {
	if m := quotedValue.FindStringSubmatch(match); m != nil {
		return m[1]
	}
	return ""
}

var lkDBParts = []*regexp.Regexp{
	regexp.MustCompile(`x:\s+"([a-zA-Z0-9]+)"`),
	regexp.MustCompile(`y:\s+"([a-zA-Z0-9]+)"`),
	regexp.MustCompile(`z:\s+"([a-zA-Z0-9]+)"`),
}

// keyLocations are tried in order; the page rotates between them.
var keyLocations = []keyLocation{
	{
		name:    "meta",
		pattern: regexp.MustCompile(`<meta name="_gg_fb" content="[a-zA-Z0-9]+">`),
		key:     firstQuoted,
	},
	{
		name:    "comment",
		pattern: regexp.MustCompile(`<!--\s+_is_th:([0-9a-zA-Z]+)\s+-->`),
	},
	{
		name:    "lk_db",
		pattern: regexp.MustCompile(`<script>window\._lk_db\s+=\s+\{[xyz]:\s+["'][a-zA-Z0-9]+["'],\s+[xyz]:\s+["'][a-zA-Z0-9]+["'],\s+[xyz]:\s+["'][a-zA-Z0-9]+["']\};</script>`),
		key: func(match string) string {
			var b strings.Builder
			for _, re := range lkDBParts {
				m := re.FindStringSubmatch(match)
				if m == nil {
					return ""
				}
				b.WriteString(m[1])
			}
			return b.String()
		},
	},
	{
		name:    "data-dpi",
		pattern: regexp.MustCompile(`<div\s+data-dpi="[0-9a-zA-Z]+"\s+[^>]*></div>`),
		key:     firstQuoted,
	},
	{
		name:    "nonce",
		pattern: regexp.MustCompile(`<script nonce="[0-9a-zA-Z]+">`),
		key:     firstQuoted,
	},
	{
		name:    "xy_ws",
		pattern: regexp.MustCompile(`<script>window\._xy_ws = ['"\x60]([0-9a-zA-Z]+)['"\x60];</script>`),
	},
}

// extractClientKey recovers the client key from embed page HTML. The first
// location whose markup is present decides the result.
func extractClientKey(html string) (string, error) {
	for _, loc := range keyLocations {
		m := loc.pattern.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		var key string
		if loc.key != nil {
			key = loc.key(m[0])
		} else if len(m) > 1 {
			key = m[1]
		}
		if key == "" {
			return "", errors.Errorf("client key markup %q has no value", loc.name)
		}
		return key, nil
	}
	return "", errors.New("failed to extract client key: no obfuscation pattern matched")
}
