package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmanjml/cs3-ext-flixhq/internal/media"
)

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ajax/v2/episode/servers/555", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		w.Write([]byte(episodeServersHTML))
	})
	mux.HandleFunc("/ajax/movie/episodes/75043", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(movieServersHTML))
	})
	mux.HandleFunc("/ajax/get_link/10001", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"iframe","link":"https://rabbitstream.net/embed-4/upcloudID?z=","sources":[],"tracks":[]}`))
	})
	mux.HandleFunc("/ajax/episode/sources/10002", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"iframe","link":"https://rabbitstream.net/embed-4/vidcloudID?z="}`))
	})
	mux.HandleFunc("/ajax/get_link/20001", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"link":""}`))
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetServers(t *testing.T) {
	srv := newTestSite(t)
	p := NewSflix(srv.URL, srv.Client())
	ctx := context.Background()

	servers, err := p.GetServers(ctx, "tv/free-dark-hd-1", "555")
	require.NoError(t, err)
	assert.Len(t, servers, 3)

	servers, err = p.GetServers(ctx, "movie/free-the-exorcist-hd-75043", "")
	require.NoError(t, err)
	assert.Equal(t, "Streamlare", servers[0].Name)

	_, err = p.GetServers(ctx, "movie/no-id", "")
	assert.Error(t, err)

	_, err = p.GetServers(ctx, "", "555; rm -rf /")
	assert.Error(t, err)
}

func TestGetEmbedURL(t *testing.T) {
	srv := newTestSite(t)
	p := NewSflix(srv.URL+"/", srv.Client())
	ctx := context.Background()

	link, err := p.GetEmbedURL(ctx, "10001")
	require.NoError(t, err)
	assert.Equal(t, "https://rabbitstream.net/embed-4/upcloudID?z=", link)

	link, err = p.GetEmbedURL(ctx, "10002")
	require.NoError(t, err, "falls back to the sources route")
	assert.Equal(t, "https://rabbitstream.net/embed-4/vidcloudID?z=", link)

	_, err = p.GetEmbedURL(ctx, "20001")
	assert.Error(t, err, "empty link is not an embed")

	_, err = p.GetEmbedURL(ctx, "../etc")
	assert.Error(t, err)
}

func TestFilterServers(t *testing.T) {
	servers := []media.Server{
		{Name: "UpCloud", ID: "1"},
		{Name: "MixDrop", ID: "2"},
		{Name: " vidcloud ", ID: "3"},
		{Name: "UpCloud", ID: "1"},
		{Name: "Streamlare", ID: "4"},
	}

	got := FilterServers(servers, nil)
	assert.Equal(t, []media.Server{
		{Name: "UpCloud", ID: "1"},
		{Name: " vidcloud ", ID: "3"},
		{Name: "Streamlare", ID: "4"},
	}, got)

	got = FilterServers(servers, []string{"MIXDROP"})
	assert.Equal(t, []media.Server{{Name: "MixDrop", ID: "2"}}, got)

	assert.Empty(t, FilterServers(nil, nil))
}

func TestMirrors(t *testing.T) {
	srv := newTestSite(t)
	p := NewSflix(srv.URL, srv.Client())

	mirrors, err := Mirrors(context.Background(), p, "tv/free-dark-hd-1", "555", nil)
	require.NoError(t, err)
	assert.Equal(t, []media.Mirror{
		{Server: media.Server{Name: "UpCloud", ID: "10001"}, EmbedURL: "https://rabbitstream.net/embed-4/upcloudID?z="},
		{Server: media.Server{Name: "Vidcloud", ID: "10002"}, EmbedURL: "https://rabbitstream.net/embed-4/vidcloudID?z="},
	}, mirrors, "MixDrop is not allow-listed")
}
