package ytvideodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, oembedStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		if oembedStatus != http.StatusOK {
			w.WriteHeader(oembedStatus)
			return
		}
		assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", r.URL.Query().Get("url"))
		w.Write([]byte(`{"title":"Never Gonna Give You Up","author_name":"Rick Astley","thumbnail_url":"https://i.ytimg.com/x.jpg"}`))
	})
	mux.HandleFunc("/page/dQw4w9WgXcQ", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Private Upload - YouTube</title></head>
<body><span itemprop="author"><link itemprop="name" content="Someone"></span></body></html>`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetWithEmbed(t *testing.T) {
	srv := newTestServer(t, http.StatusOK)
	c := New().WithBaseURLs(srv.URL+"/oembed", srv.URL+"/page")

	data, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", data.Title)
	assert.Equal(t, "Rick Astley", data.AuthorName)
}

func TestGetFallsBackToPage(t *testing.T) {
	srv := newTestServer(t, http.StatusUnauthorized)
	c := New().WithBaseURLs(srv.URL+"/oembed", srv.URL+"/page")

	data, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Private Upload", data.Title)
	assert.Equal(t, "Someone", data.AuthorName)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", data.ThumbnailUrl)
}

func TestGetNotFound(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest)
	c := New().WithBaseURLs(srv.URL+"/oembed", srv.URL+"/page")

	_, err := c.Get(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
