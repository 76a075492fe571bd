package extract

import (
	"bytes"
	"encoding/json"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

// sourcesPayload is the getSources answer. Each list is either a JSON array
// of entries or, when Encrypted is set, a base64 ciphertext of that array.
type sourcesPayload struct {
	Sources       json.RawMessage `json:"sources"`
	Sources1      json.RawMessage `json:"sources_1"`
	Sources2      json.RawMessage `json:"sources_2"`
	SourcesBackup json.RawMessage `json:"sourcesBackup"`
	Tracks        json.RawMessage `json:"tracks"`
	Encrypted     bool            `json:"encrypted"`
}

type sourceEntry struct {
	File  string `json:"file"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

type trackEntry struct {
	File    string `json:"file"`
	Label   string `json:"label"`
	Kind    string `json:"kind"`
	Default bool   `json:"default"`
}

// Decoded is the result of decoding one getSources answer.
type Decoded struct {
	Group     media.CandidateGroup
	Subtitles []media.SubtitleTrack
	// Dropped holds the per-list failures. The other lists are still usable.
	Dropped []error
}

// DecodeSources parses the result object delivered by the handshake. An
// error is returned only when the object itself is not valid JSON; a bad
// list is recorded in Decoded.Dropped and skipped.
func DecodeSources(obj []byte, secret []byte) (Decoded, error) {
	var p sourcesPayload
	if err := json.Unmarshal(obj, &p); err != nil {
		return Decoded{}, parseError("sources payload", err)
	}

	var d Decoded
	lists := []struct {
		label string
		raw   json.RawMessage
	}{
		{media.GroupPrimary, p.Sources},
		{media.GroupAlt1, p.Sources1},
		{media.GroupAlt2, p.Sources2},
		{media.GroupBackup, p.SourcesBackup},
	}
	for _, l := range lists {
		entries, err := decodeList(l.label, l.raw, p.Encrypted, secret)
		if err != nil {
			d.Dropped = append(d.Dropped, err)
			continue
		}
		cl := media.CandidateList{Label: l.label}
		for _, e := range entries {
			c := media.SourceCandidate{File: e.File, Type: e.Type, Label: e.Label}
			c.Kind = Classify(c)
			cl.Sources = append(cl.Sources, c)
		}
		d.Group.Lists = append(d.Group.Lists, cl)
	}

	subs, err := decodeTracks(p.Tracks)
	if err != nil {
		d.Dropped = append(d.Dropped, err)
	}
	d.Subtitles = subs

	return d, nil
}

func decodeList(label string, raw json.RawMessage, encrypted bool, secret []byte) ([]sourceEntry, error) {
	raw = bytes.TrimSpace(raw)
	if isAbsent(raw) {
		return nil, nil
	}

	body := []byte(raw)
	if raw[0] == '"' {
		if !encrypted {
			return nil, parseError(label, errNotArray)
		}
		var ct string
		if err := json.Unmarshal(raw, &ct); err != nil {
			return nil, parseError(label, err)
		}
		plain, err := Decrypt(ct, secret)
		if err != nil {
			return nil, err
		}
		body = plain
	}

	var entries []sourceEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, parseError(label, err)
	}
	return entries, nil
}

func decodeTracks(raw json.RawMessage) ([]media.SubtitleTrack, error) {
	raw = bytes.TrimSpace(raw)
	if isAbsent(raw) {
		return nil, nil
	}

	var tracks []trackEntry
	if err := json.Unmarshal(raw, &tracks); err != nil {
		return nil, parseError("tracks", err)
	}

	var subs []media.SubtitleTrack
	for _, t := range tracks {
		if t.File == "" || t.Kind == "thumbnails" {
			continue
		}
		label := t.Label
		if label == "" {
			label = "Unknown"
		}
		subs = append(subs, media.SubtitleTrack{URL: t.File, Label: label})
	}
	return subs, nil
}

func isAbsent(raw []byte) bool {
	return len(raw) == 0 || string(raw) == "null"
}
