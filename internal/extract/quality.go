package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// QualityUnknown sorts below every known quality.
const QualityUnknown = 0

var namedQualities = map[string]int{
	"4k":      2160,
	"uhd":     2160,
	"2k":      1440,
	"qhd":     1440,
	"fhd":     1080,
	"full hd": 1080,
	"hd":      720,
	"sd":      480,
}

var knownHeights = map[int]bool{
	144: true, 240: true, 360: true, 480: true,
	720: true, 1080: true, 1440: true, 2160: true,
}

var heightPattern = regexp.MustCompile(`\b(\d{3,4})p?\b`)

// QualityFromName maps a label such as "1080p", "720", "HD" or "4K" to a
// vertical resolution. Anything else is QualityUnknown.
func QualityFromName(name string) int {
	n := strings.ToLower(strings.TrimSpace(name))
	if q, ok := namedQualities[n]; ok {
		return q
	}
	for _, m := range heightPattern.FindAllStringSubmatch(n, -1) {
		h, err := strconv.Atoi(m[1])
		if err == nil && knownHeights[h] {
			return h
		}
	}
	return QualityUnknown
}
