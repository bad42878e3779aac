package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/vjovkovs/comicscrape/internal/console"
	"github.com/vjovkovs/comicscrape/internal/fetch"
	"github.com/vjovkovs/comicscrape/internal/parse"
)

var (
	// ErrUnrecognizedPage means a detail page had neither a download link
	// nor a readable gallery.
	ErrUnrecognizedPage = errors.New("unrecognized detail page")
)

// Client is the subset of fetch.Client the resolver uses.
type Client interface {
	GetText(ctx context.Context, url string) (string, error)
	Download(ctx context.Context, url, referer string, tr fetch.Tracker) (*fetch.Payload, error)
}

type Kind int

const (
	// Direct is a single archive served by the catalog's download link.
	Direct Kind = iota
	// Gallery is a set of page images to be packed locally.
	Gallery
)

func (k Kind) String() string {
	if k == Gallery {
		return "gallery"
	}
	return "direct"
}

// Result of resolving one issue. Close must be called to drop staged pages.
type Result struct {
	Kind    Kind
	Link    string         // download link or reader page
	Payload *fetch.Payload // Direct only
	Pages   []string       // Gallery only: staged page files in reading order
	dir     string
}

func (r *Result) Close() error {
	if r == nil || r.dir == "" {
		return nil
	}
	return os.RemoveAll(r.dir)
}

type Options struct {
	TempDir string // parent of gallery staging directories; os.TempDir() when empty
}

type Resolver struct {
	client Client
	parser parse.PageParser
	out    *console.Printer
	opt    Options
}

func NewResolver(c Client, p parse.PageParser, out *console.Printer, opt Options) *Resolver {
	if opt.TempDir == "" {
		opt.TempDir = os.TempDir()
	}
	return &Resolver{client: c, parser: p, out: out, opt: opt}
}

// TempDir is where gallery pages are staged.
func (r *Resolver) TempDir() string { return r.opt.TempDir }

// Resolve fetches an issue detail page and downloads what it offers: the
// "Download Now" archive, or else every page of the "Read Online" gallery.
func (r *Resolver) Resolve(ctx context.Context, issueURL string) (*Result, error) {
	page, err := r.client.GetText(ctx, issueURL)
	if err != nil {
		return nil, fmt.Errorf("fetch detail page %s: %w", issueURL, err)
	}

	if link, ok := r.parser.FindDownloadLink(page, issueURL); ok {
		r.out.Debugf("Download url: %s\n", link)
		// The catalog checks the referer before serving files.
		var tr fetch.Tracker
		if pr := r.out.Progress("  downloading"); pr != nil {
			tr = pr
		}
		p, err := r.client.Download(ctx, link, issueURL, tr)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", link, err)
		}
		return &Result{Kind: Direct, Link: link, Payload: p}, nil
	}
	return r.gallery(ctx, page, issueURL)
}

func (r *Resolver) gallery(ctx context.Context, page, issueURL string) (*Result, error) {
	readURL, ok := r.parser.FindReadOnlineLink(page, issueURL)
	if !ok {
		return nil, fmt.Errorf("%s: no download or read-online link: %w", issueURL, ErrUnrecognizedPage)
	}
	r.out.Printf("  Readonline url: %s\n", readURL)

	reader, err := r.client.GetText(ctx, readURL)
	if err != nil {
		return nil, fmt.Errorf("fetch reader page %s: %w", readURL, err)
	}
	urls := r.parser.FindGalleryImageURLs(reader, readURL)
	if len(urls) == 0 {
		return nil, fmt.Errorf("%s: no gallery images: %w", readURL, ErrUnrecognizedPage)
	}

	dir := filepath.Join(r.opt.TempDir, "comicscrape-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	res := &Result{Kind: Gallery, Link: readURL, dir: dir}

	for i, u := range urls {
		r.out.Printf("\r  page %d/%d", i+1, len(urls))
		p, err := r.client.Download(ctx, u, readURL, nil)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("gallery page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("%03d%s", i+1, imageExt(p.Body))
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, p.Body, 0o644); err != nil {
			res.Close()
			return nil, err
		}
		res.Pages = append(res.Pages, path)
	}
	r.out.Printf("\n")
	return res, nil
}

func imageExt(b []byte) string {
	m := mimetype.Detect(b)
	if strings.HasPrefix(m.String(), "image/") && m.Extension() != "" {
		return m.Extension()
	}
	return ".jpg"
}
