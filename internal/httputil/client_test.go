package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetJSONSendsHeaders(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		if got := r.Header.Get("Referer"); got != "https://sflix.to/" {
			t.Errorf("Referer = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != UserAgent {
			t.Errorf("User-Agent = %q", got)
		}
		w.Write([]byte(`{"link":"x"}`))
	}))
	defer srv.Close()

	body, err := GetJSON(context.Background(), srv.Client(), srv.URL, map[string]string{"Referer": "https://sflix.to/"})
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if string(body) != `{"link":"x"}` {
		t.Errorf("GetJSON() = %q", body)
	}
}

func TestGetBodyRejectsNon200(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := GetBody(context.Background(), srv.Client(), srv.URL, nil); err == nil {
		t.Fatal("GetBody() expected error for 404")
	}
}

func TestGetRejectsPlainHTTP(t *testing.T) {
	if _, err := Get(context.Background(), http.DefaultClient, "http://example.com", nil); err == nil {
		t.Fatal("Get() expected error for http URL")
	}
}
