package download

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjovkovs/comicscrape/internal/console"
	"github.com/vjovkovs/comicscrape/internal/fetch"
	"github.com/vjovkovs/comicscrape/internal/model"
	"github.com/vjovkovs/comicscrape/internal/parse"
)

var (
	pngData  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegData = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

type catalog struct {
	*httptest.Server
	detail   string
	reader   string
	images   map[string][]byte
	referers map[string]string
}

func newCatalog(t *testing.T) *catalog {
	c := &catalog{images: map[string][]byte{}, referers: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/image/saga-1-2012/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, c.detail)
	})
	mux.HandleFunc("/read/saga-1/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, c.reader)
	})
	mux.HandleFunc("/dl/", func(w http.ResponseWriter, r *http.Request) {
		c.referers[r.URL.Path] = r.Header.Get("Referer")
		w.Write([]byte("PK\x01\x02archive"))
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		c.referers[r.URL.Path] = r.Header.Get("Referer")
		b, ok := c.images[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(b)
	})
	c.Server = httptest.NewServer(mux)
	t.Cleanup(c.Close)
	return c
}

func (c *catalog) resolver(t *testing.T, out *console.Printer) *Resolver {
	return NewResolver(fetch.NewClient(fetch.Options{}), parse.NewCatalog(model.DefaultParserConfig(c.URL)), out,
		Options{TempDir: t.TempDir()})
}

func TestResolve_DirectDownload(t *testing.T) {
	c := newCatalog(t)
	c.detail = `<a href="/dl/123" title="Download Now">Download</a><a href="/read/saga-1/" title="Read Online">Read</a>`

	var buf bytes.Buffer
	issueURL := c.URL + "/image/saga-1-2012/"
	res, err := c.resolver(t, console.NewPrinter(&buf, false, false)).Resolve(context.Background(), issueURL)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, Direct, res.Kind)
	assert.Equal(t, c.URL+"/dl/123", res.Link)
	assert.Equal(t, []byte("PK\x01\x02archive"), res.Payload.Body)
	assert.Equal(t, issueURL, c.referers["/dl/123"])
	assert.Contains(t, buf.String(), "downloading")
}

func TestResolve_GalleryFallback(t *testing.T) {
	c := newCatalog(t)
	c.detail = `<a href="/read/saga-1/" title="Read Online">Read</a>`
	var imgs []string
	for i := 1; i <= 5; i++ {
		p := fmt.Sprintf("/img/%d", i)
		if i%2 == 0 {
			c.images[p] = pngData
		} else {
			c.images[p] = jpegData
		}
		imgs = append(imgs, fmt.Sprintf("<img data-src=' %s%s ' />", c.URL, p))
	}
	c.reader = strings.Join(imgs, "\n")

	res, err := c.resolver(t, nil).Resolve(context.Background(), c.URL+"/image/saga-1-2012/")
	require.NoError(t, err)

	assert.Equal(t, Gallery, res.Kind)
	require.Len(t, res.Pages, 5)
	var names []string
	for _, p := range res.Pages {
		names = append(names, filepath.Base(p))
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
	assert.Equal(t, []string{"001.jpg", "002.png", "003.jpg", "004.png", "005.jpg"}, names)
	assert.Equal(t, c.URL+"/read/saga-1/", c.referers["/img/3"])

	dir := filepath.Dir(res.Pages[0])
	require.NoError(t, res.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestResolve_GalleryWithoutImages(t *testing.T) {
	c := newCatalog(t)
	c.detail = `<a href="/read/saga-1/" title="Read Online">Read</a>`
	c.reader = `<p>nothing to see</p>`

	_, err := c.resolver(t, nil).Resolve(context.Background(), c.URL+"/image/saga-1-2012/")
	assert.ErrorIs(t, err, ErrUnrecognizedPage)
}

func TestResolve_NoLinks(t *testing.T) {
	c := newCatalog(t)
	c.detail = `<p>removed by request</p>`

	_, err := c.resolver(t, nil).Resolve(context.Background(), c.URL+"/image/saga-1-2012/")
	assert.ErrorIs(t, err, ErrUnrecognizedPage)
}

func TestResolve_DetailPageMissing(t *testing.T) {
	c := newCatalog(t)
	_, err := c.resolver(t, nil).Resolve(context.Background(), c.URL+"/image/nope-1-2012/")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnrecognizedPage)
}

func TestResolve_GalleryPageFailureCleansUp(t *testing.T) {
	c := newCatalog(t)
	c.detail = `<a href="/read/saga-1/" title="Read Online">Read</a>`
	c.images["/img/1"] = jpegData
	c.reader = fmt.Sprintf(`<img data-src='%s/img/1'><img data-src='%s/img/missing'>`, c.URL, c.URL)

	tmp := t.TempDir()
	r := NewResolver(fetch.NewClient(fetch.Options{}), parse.NewCatalog(model.DefaultParserConfig(c.URL)), nil,
		Options{TempDir: tmp})
	_, err := r.Resolve(context.Background(), c.URL+"/image/saga-1-2012/")
	require.Error(t, err)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "direct", Direct.String())
	assert.Equal(t, "gallery", Gallery.String())
}
