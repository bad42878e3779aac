package parse

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/vjovkovs/comicscrape/internal/model"
)

// PageParser pulls the links the acquisition loop needs out of catalog pages.
// Implementations must not touch the network.
type PageParser interface {
	// FindIssueURL returns the first detail-page URL for issue of the series
	// slug found in a search corpus.
	FindIssueURL(corpus, slug string, issue int) (string, bool)
	// FindDownloadLink returns the absolute "Download Now" target of a detail page.
	FindDownloadLink(page, pageURL string) (string, bool)
	// FindReadOnlineLink returns the absolute "Read Online" target of a detail page.
	FindReadOnlineLink(page, pageURL string) (string, bool)
	// FindGalleryImageURLs returns the page images of a reader page in order.
	FindGalleryImageURLs(page, pageURL string) []string
}

// Catalog is the PageParser for the configured catalog site.
type Catalog struct {
	cfg     model.ParserConfig
	site    string
	imageRe []*regexp.Regexp
}

var _ PageParser = (*Catalog)(nil)

func NewCatalog(cfg model.ParserConfig) *Catalog {
	c := &Catalog{
		cfg:  cfg,
		site: strings.TrimRight(cfg.SiteURL, "/"),
	}
	for _, attr := range cfg.GalleryImageAttrs {
		c.imageRe = append(c.imageRe,
			regexp.MustCompile(regexp.QuoteMeta(attr)+`\s*=\s*['"]\s*([^'"\s]+)\s*['"]`))
	}
	return c
}

// IssuePattern builds the detail-page URL pattern for issue of slug.
func (c *Catalog) IssuePattern(slug string, issue int) *regexp.Regexp {
	prefix := regexp.QuoteMeta(c.site) + `/[^/]+/` + regexp.QuoteMeta(slug) + `-` + strconv.Itoa(issue)
	switch c.cfg.IssuePattern {
	case model.IssuePatternStrict:
		// "-1" must not match "-10" or "-1"" when looking for issue 1.
		return regexp.MustCompile(prefix + `[^\d"][^"\s<>]*`)
	default:
		return regexp.MustCompile(prefix + `-\d{4}`)
	}
}

func (c *Catalog) FindIssueURL(corpus, slug string, issue int) (string, bool) {
	if slug == "" || corpus == "" {
		return "", false
	}
	m := c.IssuePattern(slug, issue).FindString(corpus)
	return m, m != ""
}

func (c *Catalog) FindDownloadLink(page, pageURL string) (string, bool) {
	return findLabelledLink(page, pageURL, c.cfg.DownloadLabels)
}

func (c *Catalog) FindReadOnlineLink(page, pageURL string) (string, bool) {
	return findLabelledLink(page, pageURL, c.cfg.ReadOnlineLabels)
}

func (c *Catalog) FindGalleryImageURLs(page, pageURL string) []string {
	var out []string
	for _, re := range c.imageRe {
		for _, m := range re.FindAllStringSubmatch(page, -1) {
			if u := resolveURL(pageURL, m[1]); u != "" {
				out = append(out, u)
			}
		}
		if len(out) > 0 {
			break
		}
	}
	return out
}

// findLabelledLink returns the href of the first anchor whose accessible
// label (title, aria-label, or text) equals one of labels.
func findLabelledLink(page, pageURL string, labels []string) (string, bool) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", false
	}
	doc := goquery.NewDocumentFromNode(root)

	var link string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !hasLabel(a, labels) {
			return true
		}
		href, _ := a.Attr("href")
		if u := resolveURL(pageURL, href); u != "" {
			link = u
			return false
		}
		return true
	})
	return link, link != ""
}

func hasLabel(a *goquery.Selection, labels []string) bool {
	candidates := []string{strings.Join(strings.Fields(a.Text()), " ")}
	for _, attr := range []string{"title", "aria-label"} {
		if v, ok := a.Attr(attr); ok {
			candidates = append(candidates, strings.TrimSpace(v))
		}
	}
	for _, c := range candidates {
		for _, l := range labels {
			if strings.EqualFold(c, l) {
				return true
			}
		}
	}
	return false
}

// resolveURL resolves href relative to base (if href is not absolute).
func resolveURL(baseStr, href string) string {
	href = strings.TrimSpace(html.UnescapeString(href))
	if href == "" {
		return ""
	}
	h, herr := url.Parse(href)
	if herr != nil {
		return ""
	}
	// absolute already
	if h.Scheme != "" && h.Host != "" {
		return h.String()
	}
	// resolve relative
	bu, berr := url.Parse(baseStr)
	if berr != nil || baseStr == "" {
		return ""
	}
	return bu.ResolveReference(h).String()
}
