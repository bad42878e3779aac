package naming

import (
	"bytes"
	"context"
	"log"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/vjovkovs/comicscrape/internal/metadata"
	"github.com/vjovkovs/comicscrape/internal/model"
	"github.com/vjovkovs/comicscrape/internal/util"
)

// zipCentralDirectory marks a zip central directory header.
var zipCentralDirectory = []byte{0x50, 0x4B, 0x01, 0x02}

var lastSegment = regexp.MustCompile(`/([^/]+)$`)

// Where a resolved filename came from.
const (
	SourceHeader    = "header"
	SourceComicVine = "comicvine"
	SourceComposed  = "composed"
)

// Lookup finds issue metadata; *metadata.ComicVine implements it.
type Lookup interface {
	SearchIssue(ctx context.Context, query string) (metadata.Issue, error)
}

type Request struct {
	Title   model.Title
	Issue   int
	Headers []http.Header // every response of the download, redirects first
	Payload []byte
}

type Result struct {
	Name   string
	Source string
}

type Resolver struct {
	lookup Lookup
}

// NewResolver builds a resolver; lookup may be nil to skip metadata queries.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve picks the saved filename: the server's name if it sent one, then a
// metadata-derived name, then "<title> <NNN>.<cbz|cbr>".
func (r *Resolver) Resolve(ctx context.Context, req Request) Result {
	if name := FromHeaders(req.Headers); name != "" {
		return Result{Name: name, Source: SourceHeader}
	}
	if r.lookup != nil {
		q := req.Title.SearchTerm + " " + strconv.Itoa(req.Issue)
		is, err := r.lookup.SearchIssue(ctx, q)
		if err != nil {
			log.Printf("metadata lookup %q: %v", q, err)
		} else if name := Compose(is); name != "" {
			return Result{Name: name, Source: SourceComicVine}
		}
	}
	return Result{Name: Synthesize(req.Title.DisplayTitle, req.Issue, req.Payload), Source: SourceComposed}
}

// FromHeaders returns the filename announced by a response chain: the last
// path segment of the first Location header, else a Content-Disposition
// filename. Empty when neither is present.
func FromHeaders(headers []http.Header) string {
	for _, h := range headers {
		if name := clean(locationName(h.Get("Location"))); name != "" {
			return name
		}
	}
	for _, h := range headers {
		cd := h.Get("Content-Disposition")
		if cd == "" {
			continue
		}
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return clean(params["filename"])
		}
	}
	return ""
}

func locationName(loc string) string {
	if u, err := url.Parse(loc); err == nil {
		loc = u.EscapedPath()
	}
	if dec, err := url.QueryUnescape(loc); err == nil {
		loc = dec
	}
	m := lastSegment.FindStringSubmatch(loc)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsZip reports whether payload contains a zip central directory record.
func IsZip(payload []byte) bool {
	return bytes.Contains(payload, zipCentralDirectory)
}

// Extension is ".cbz" for zip payloads and ".cbr" otherwise.
func Extension(payload []byte) string {
	if IsZip(payload) {
		return ".cbz"
	}
	return ".cbr"
}

// Synthesize names a file from local data: "Saga 001.cbz".
func Synthesize(title string, issue int, payload []byte) string {
	return clean(title + " " + util.PadIssue(issue) + Extension(payload))
}

// Compose builds "<volume> <NNN> - <title> (<year>).cbz" from metadata,
// leaving out whatever is missing. Without a volume name it returns "".
func Compose(is metadata.Issue) string {
	if is.Volume == "" {
		return ""
	}
	parts := []string{is.Volume}
	if is.Number != "" {
		num := is.Number
		if n, err := strconv.Atoi(num); err == nil {
			num = util.PadIssue(n)
		}
		parts = append(parts, num)
	}
	if is.Title != "" {
		parts = append(parts, "-", is.Title)
	}
	if len(is.CoverDate) >= 4 {
		if _, err := strconv.Atoi(is.CoverDate[:4]); err == nil {
			parts = append(parts, "("+is.CoverDate[:4]+")")
		}
	}
	return clean(strings.Join(parts, " ") + ".cbz")
}

// clean keeps a name inside its title directory.
func clean(name string) string {
	name = strings.TrimSpace(strings.NewReplacer("/", "-", "\\", "-", "\x00", "").Replace(name))
	if name == "." || name == ".." {
		return ""
	}
	return name
}
