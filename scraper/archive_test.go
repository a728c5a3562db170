package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cascade/models"
)

// newArchiveServer serves a Wayback-style availability API and snapshots.
func newArchiveServer(t *testing.T, available bool) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/wayback/available":
			if !available {
				_, _ = io.WriteString(w, `{"url":"x","archived_snapshots":{}}`)
				return
			}
			assert.Equal(t, "https://gone.example/page", r.URL.Query().Get("url"))
			fmt.Fprintf(w, `{"archived_snapshots":{"closest":{"status":"200","available":true,"url":"%s/web/20240101000000/https://gone.example/page","timestamp":"20240101000000"}}}`, srv.URL)
		case strings.HasPrefix(r.URL.Path, "/web/20240101000000id_/"):
			_, _ = io.WriteString(w, "<html><head><title>Archived</title></head><body>old copy</body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	return srv
}

func TestArchiveFetcherFound(t *testing.T) {
	srv := newArchiveServer(t, true)
	defer srv.Close()

	a := NewArchiveFetcher(NewHTTPFetcher(0), srv.URL+"/wayback/available")
	v, err := a.Fetch(context.Background(), "https://gone.example/page", models.RequestOptions{})
	require.NoError(t, err)

	page, ok := v.(*ArchivedPage)
	require.True(t, ok)
	assert.Contains(t, page.HTML, "old copy")
	assert.Equal(t, "20240101000000", page.Timestamp)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.True(t, strings.HasSuffix(page.SnapshotURL, "/web/20240101000000/https://gone.example/page"))
}

func TestArchiveFetcherNoSnapshot(t *testing.T) {
	srv := newArchiveServer(t, false)
	defer srv.Close()

	a := NewArchiveFetcher(NewHTTPFetcher(0), srv.URL+"/wayback/available")
	v, err := a.Fetch(context.Background(), "https://gone.example/page", models.RequestOptions{})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRawSnapshotURL(t *testing.T) {
	assert.Equal(t,
		"http://web.archive.org/web/2013id_/http://example.com",
		rawSnapshotURL("http://web.archive.org/web/2013/http://example.com", "2013"))
	assert.Equal(t, "http://x/y", rawSnapshotURL("http://x/y", ""))
}
