package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTracker struct {
	total int64
	buf   bytes.Buffer
	done  bool
}

func (c *countingTracker) Track(total int64) io.Writer { c.total = total; return &c.buf }
func (c *countingTracker) Done()                       { c.done = true }

func TestClient_GetTextSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		io.WriteString(w, "<html>ok</html>")
	}))
	defer srv.Close()

	c := NewClient(Options{})
	body, err := c.GetText(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestClient_GetTextErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewClient(Options{UserAgent: "test"}).GetText(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_DecodesCompressedBodies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/gz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		io.WriteString(gz, "gzipped page")
		gz.Close()
	})
	mux.HandleFunc("/br", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "br")
		w.Header().Set("Content-Encoding", "br")
		bw := brotli.NewWriter(w)
		io.WriteString(bw, "brotli page")
		bw.Close()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Options{})
	body, err := c.GetText(context.Background(), srv.URL+"/gz")
	require.NoError(t, err)
	assert.Equal(t, "gzipped page", body)

	body, err = c.GetText(context.Background(), srv.URL+"/br")
	require.NoError(t, err)
	assert.Equal(t, "brotli page", body)
}

func TestClient_DownloadRecordsRedirectHeaders(t *testing.T) {
	payload := []byte("PK\x03\x04 comic bytes")
	var referer string
	mux := http.NewServeMux()
	mux.HandleFunc("/dl", func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		http.Redirect(w, r, "/files/Saga%20001.cbz", http.StatusFound)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tr := &countingTracker{}
	p, err := NewClient(Options{}).Download(context.Background(), srv.URL+"/dl", "https://catalog/saga-1-2012/", tr)
	require.NoError(t, err)

	assert.Equal(t, "https://catalog/saga-1-2012/", referer)
	assert.Equal(t, payload, p.Body)
	require.Len(t, p.Headers, 2)
	assert.Equal(t, "/files/Saga%20001.cbz", p.Headers[0].Get("Location"))
	assert.Empty(t, p.Headers[1].Get("Location"))
	assert.Equal(t, srv.URL+"/files/Saga%20001.cbz", p.URL)

	assert.True(t, tr.done)
	assert.Equal(t, int64(len(payload)), tr.total)
	assert.Equal(t, payload, tr.buf.Bytes())
}

func TestClient_DownloadWithoutReferer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Referer"))
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	p, err := NewClient(Options{}).Download(context.Background(), srv.URL, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), p.Body)
	assert.Len(t, p.Headers, 1)
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(Options{}).GetText(ctx, srv.URL)
	assert.Error(t, err)
}
