package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is a desktop browser string; the catalog refuses obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/87.0.4280.88 Safari/537.36"

const maxRedirects = 10

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Delay     time.Duration // zero disables pacing
}

type Client struct {
	http *http.Client
	ua   string
	lim  *rate.Limiter
}

// Tracker is told about a payload's size before it streams and receives
// every chunk written while it does.
type Tracker interface {
	Track(total int64) io.Writer
	Done()
}

// Payload is a fully read binary response.
type Payload struct {
	Body []byte
	URL  string
	// Headers holds the headers of every response in the chain: redirect
	// hops first, the final response last.
	Headers []http.Header
}

type hopsKey struct{}

func NewClient(opt Options) *Client {
	lim := rate.NewLimiter(rate.Inf, 1)
	if opt.Delay > 0 {
		lim = rate.NewLimiter(rate.Every(opt.Delay), 1)
	}
	ua := opt.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{
		http: &http.Client{Timeout: opt.Timeout, CheckRedirect: recordHop},
		ua:   ua,
		lim:  lim,
	}
}

// recordHop keeps the headers of each redirect response when the request
// context asks for them.
func recordHop(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}
	if hops, ok := req.Context().Value(hopsKey{}).(*[]http.Header); ok && req.Response != nil {
		*hops = append(*hops, req.Response.Header.Clone())
	}
	return nil
}

// Get issues a GET with the client's user agent plus any extra headers. The
// body is decoded when the server compressed it.
func (c *Client) Get(ctx context.Context, url string, hdr http.Header) (*http.Response, error) {
	if err := c.lim.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept-Encoding", "gzip, br")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, errors.New(resp.Status)
	}
	if err := decode(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// GetText fetches a page and returns its body as a string.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	resp, err := c.Get(ctx, url, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(b), nil
}

// Download fetches a binary payload. A non-empty referer is sent as the
// Referer header; tr, when set, observes the transfer.
func (c *Client) Download(ctx context.Context, url, referer string, tr Tracker) (*Payload, error) {
	var hops []http.Header
	ctx = context.WithValue(ctx, hopsKey{}, &hops)

	hdr := http.Header{}
	if referer != "" {
		hdr.Set("Referer", referer)
	}
	resp, err := c.Get(ctx, url, hdr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if tr != nil {
		body = io.TeeReader(resp.Body, tr.Track(resp.ContentLength))
		defer tr.Done()
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return &Payload{
		Body:    b,
		URL:     resp.Request.URL.String(),
		Headers: append(hops, resp.Header),
	}, nil
}

func decode(resp *http.Response) error {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip body: %w", err)
		}
		r = gz
	default:
		return nil
	}
	resp.Body = &decodedBody{Reader: r, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	return nil
}

type decodedBody struct {
	io.Reader
	raw io.Closer
}

func (d *decodedBody) Close() error { return d.raw.Close() }
