package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

func TestParseEmbedURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDomain string
		wantPrefix string
		wantID     string
		wantErr    bool
	}{
		{
			name:       "standard embed-1 URL",
			url:        "https://streameeeeee.site/embed-1/v3/e-1/AbCdEf123?z=",
			wantDomain: "streameeeeee.site",
			wantPrefix: "embed-1",
			wantID:     "AbCdEf123",
		},
		{
			name:       "embed-2 URL",
			url:        "https://megacloud.blog/embed-2/v3/e-1/XyZ789?k=1",
			wantDomain: "megacloud.blog",
			wantPrefix: "embed-2",
			wantID:     "XyZ789",
		},
		{
			name:       "legacy embed-4 URL",
			url:        "https://rabbitstream.net/embed-4/dcPOVRE57YOT?z=",
			wantDomain: "rabbitstream.net",
			wantPrefix: "embed-4",
			wantID:     "dcPOVRE57YOT",
		},
		{
			name:    "empty URL",
			url:     "",
			wantErr: true,
		},
		{
			name:    "malformed host",
			url:     "https://-megacloud.blog/embed-2/v3/e-1/XyZ789",
			wantErr: true,
		},
		{
			name:    "quote in source ID",
			url:     "https://megacloud.blog/embed-2/v3/e-1/Xy%22Z",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domain, prefix, id, err := parseEmbedURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseEmbedURL() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil {
				return
			}
			if domain != tt.wantDomain {
				t.Errorf("domain = %q, want %q", domain, tt.wantDomain)
			}
			if prefix != tt.wantPrefix {
				t.Errorf("prefix = %q, want %q", prefix, tt.wantPrefix)
			}
			if id != tt.wantID {
				t.Errorf("id = %q, want %q", id, tt.wantID)
			}
		})
	}
}

func TestAjaxCanExtract(t *testing.T) {
	a := NewAjax(nil, nil, nil)
	assert.True(t, a.CanExtract("https://megacloud.blog/embed-2/v3/e-1/XyZ789?k=1"))
	assert.False(t, a.CanExtract("https://example.com/watch/XyZ789"))
	assert.False(t, a.CanExtract("http://megacloud.blog/embed-2/v3/e-1/XyZ789"))
}

func TestAjaxExtract(t *testing.T) {
	const clientKey = "clientKey1"
	plain := `[{"file":"https://cdn.example.com/a/master.m3u8","type":"hls","label":"1080p"}]`
	blob, err := Encrypt([]byte(plain), []byte(clientKey))
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/embed-2/v3/e-1/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><meta name="_gg_fb" content="` + clientKey + `"></head></html>`))
	})
	mux.HandleFunc("/embed-2/v3/e-1/getSources", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", r.URL.Query().Get("id"))
		assert.Equal(t, clientKey, r.URL.Query().Get("_k"))
		json.NewEncoder(w).Encode(map[string]any{
			"sources":   blob,
			"tracks":    []map[string]string{{"file": "https://cdn.example.com/en.vtt", "label": "English", "kind": "captions"}},
			"encrypted": true,
		})
	})
	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	sel := &Selector{Name: "Sflix.to", BaseURL: "https://sflix.to"}
	a := NewAjax(srv.Client(), sel, nil)

	res, err := a.Extract(context.Background(), srv.URL+"/embed-2/v3/e-1/abc?z=")
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	assert.Equal(t, "https://cdn.example.com/a/master.m3u8", res.Links[0].URL)
	assert.Equal(t, 1080, res.Links[0].Quality)
	assert.Equal(t, "Sflix.to source 1", res.Links[0].DisplayName)
	assert.True(t, res.Links[0].IsStreamingPlaylist)
	assert.Equal(t, []media.SubtitleTrack{{URL: "https://cdn.example.com/en.vtt", Label: "English"}}, res.Subtitles)
	assert.Equal(t, "ajax", res.Extractor)
}

func TestAjaxExtractNoClientKey(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	a := NewAjax(srv.Client(), &Selector{}, nil)
	_, err := a.Extract(context.Background(), srv.URL+"/embed-2/v3/e-1/abc")
	assert.Error(t, err)
}
