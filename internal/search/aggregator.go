package search

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/vjovkovs/comicscrape/internal/parse"
	"github.com/vjovkovs/comicscrape/internal/util"
)

// PageFetcher is the subset of fetch.Client the aggregator needs.
type PageFetcher interface {
	GetText(ctx context.Context, url string) (string, error)
}

// Options controls pagination.
type Options struct {
	SiteURL     string
	QueryFormat string // path fragment preceding the escaped search term, e.g. "?s="
	MaxDepth    int    // pages to fetch; values below 1 mean 1
	// OnlyFirstPageForExistingSeries caps the depth at one page once a series
	// has issues on disk, and stops paginating as soon as the wanted issue shows up.
	OnlyFirstPageForExistingSeries bool
}

// Observer is told about every page request. Nil hooks are skipped.
type Observer struct {
	Page   func(i int)
	Missed func(i int, err error)
	Found  func(i int)
}

type Aggregator struct {
	client PageFetcher
	parser parse.PageParser
	opt    Options
	obs    Observer
}

func NewAggregator(c PageFetcher, p parse.PageParser, opt Options) *Aggregator {
	if opt.MaxDepth < 1 {
		opt.MaxDepth = 1
	}
	opt.SiteURL = strings.TrimRight(opt.SiteURL, "/")
	return &Aggregator{client: c, parser: p, opt: opt}
}

// WithObserver installs progress hooks.
func (a *Aggregator) WithObserver(o Observer) *Aggregator {
	a.obs = o
	return a
}

// SearchURL is the catalog URL of result page i for term.
func (a *Aggregator) SearchURL(i int, term string) string {
	return fmt.Sprintf("%s/page/%d/%s%s", a.opt.SiteURL, i, a.opt.QueryFormat, url.QueryEscape(term))
}

// Depth is how many pages Collect will fetch at most for wanted.
func (a *Aggregator) Depth(wanted int) int {
	if a.opt.OnlyFirstPageForExistingSeries && wanted != 1 {
		return 1
	}
	return a.opt.MaxDepth
}

// Collect concatenates the search result pages for term in page order. A
// page that cannot be fetched (usually because it does not exist) counts as
// empty; Collect itself only fails when ctx is done.
func (a *Aggregator) Collect(ctx context.Context, term string, wanted int) (string, error) {
	var corpus strings.Builder
	slug := util.Slugify(term)
	depth := a.Depth(wanted)

	for i := 1; i <= depth; i++ {
		if err := ctx.Err(); err != nil {
			return corpus.String(), err
		}
		if a.obs.Page != nil {
			a.obs.Page(i)
		}
		page, err := a.client.GetText(ctx, a.SearchURL(i, term))
		if err != nil {
			if a.obs.Missed != nil {
				a.obs.Missed(i, err)
			}
			page = ""
		}
		corpus.WriteString(page)

		if a.opt.OnlyFirstPageForExistingSeries {
			if _, ok := a.parser.FindIssueURL(corpus.String(), slug, wanted); ok {
				if a.obs.Found != nil {
					a.obs.Found(i)
				}
				break
			}
		}
	}
	return corpus.String(), nil
}
