package subtitle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

func TestFilter(t *testing.T) {
	tracks := []media.SubtitleTrack{
		{Label: "English"},
		{Label: "English - SDH"},
		{Label: "Spanish"},
		{Label: "French"},
	}

	tests := []struct {
		lang     string
		expected int
	}{
		{"english", 2},
		{"SPANISH", 1},
		{"french", 1},
		{"german", 0},
		{"", 4},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			got := Filter(tracks, tt.lang)
			if len(got) != tt.expected {
				t.Errorf("Filter(%q) returned %d tracks, want %d", tt.lang, len(got), tt.expected)
			}
		})
	}
}

func TestBestMatch(t *testing.T) {
	tracks := []media.SubtitleTrack{
		{Label: "English - SDH", URL: "https://example.com/sdh.vtt"},
		{Label: "Brazilian English", URL: "https://example.com/br.vtt"},
		{Label: "English", URL: "https://example.com/en.vtt"},
		{Label: "Spanish - Forced", URL: "https://example.com/es-forced.vtt"},
		{Label: "Spanish", URL: "https://example.com/es.vtt"},
	}

	tests := []struct {
		lang string
		want string
	}{
		{"english", "https://example.com/en.vtt"},
		{"spanish", "https://example.com/es.vtt"},
		{"brazilian", "https://example.com/br.vtt"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			best := BestMatch(tracks, tt.lang)
			if best == nil {
				t.Fatalf("BestMatch(%q) returned nil", tt.lang)
			}
			if best.URL != tt.want {
				t.Errorf("BestMatch(%q) = %s, want %s", tt.lang, best.URL, tt.want)
			}
		})
	}

	if best := BestMatch(tracks, "japanese"); best != nil {
		t.Error("BestMatch should return nil for unmatched language")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		track media.SubtitleTrack
		want  string
	}{
		{media.SubtitleTrack{URL: "https://cdn.example.com/a/eng-2.vtt?x=1", Label: "English - SDH"}, "English - SDH.vtt"},
		{media.SubtitleTrack{URL: "https://cdn.example.com/a/sub.srt", Label: ""}, "subtitle.srt"},
		{media.SubtitleTrack{URL: "https://cdn.example.com/a/noext", Label: "../../etc/passwd"}, "passwd.vtt"},
	}
	for _, tt := range tests {
		if got := fileName(tt.track); got != tt.want {
			t.Errorf("fileName(%+v) = %q, want %q", tt.track, got, tt.want)
		}
	}
}

func TestTempDirDownload(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != "https://mzzcloud.life/" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte("WEBVTT\n\n00:00.000 --> 00:01.000\nhello\n"))
	}))
	defer srv.Close()

	dir, err := NewTempDir(srv.Client())
	if err != nil {
		t.Fatalf("NewTempDir() error: %v", err)
	}
	defer dir.Cleanup()

	track := media.SubtitleTrack{URL: srv.URL + "/subs/eng.vtt", Label: "English"}
	p, err := dir.Download(context.Background(), track, map[string]string{"Referer": "https://mzzcloud.life/"})
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if filepath.Dir(p) != dir.Path() {
		t.Errorf("downloaded to %s, want inside %s", p, dir.Path())
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:6]) != "WEBVTT" {
		t.Errorf("unexpected content %q", data)
	}

	if _, err := dir.Download(context.Background(), track, nil); err == nil {
		t.Error("expected an error without the Referer header")
	}

	dir.Cleanup()
	if _, err := os.Stat(dir.Path()); !os.IsNotExist(err) {
		t.Error("Cleanup should remove the directory")
	}
}

func TestDownloadRejectsHTTP(t *testing.T) {
	dir, err := NewTempDir(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dir.Cleanup()

	if _, err := dir.Download(context.Background(), media.SubtitleTrack{URL: "http://example.com/a.vtt"}, nil); err == nil {
		t.Error("expected an error for a non-https URL")
	}
}
