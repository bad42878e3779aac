package model

// Issue URL styles understood by the catalog parser.
const (
	// IssuePatternYear expects "<slug>-<n>-<yyyy>" detail URLs.
	IssuePatternYear = "year"
	// IssuePatternStrict only requires that the issue number is not followed by
	// another digit or a quote.
	IssuePatternStrict = "strict"
)

type ParserConfig struct {
	SiteURL           string
	IssuePattern      string
	DownloadLabels    []string
	ReadOnlineLabels  []string
	GalleryImageAttrs []string
}

func DefaultParserConfig(siteURL string) ParserConfig {
	return ParserConfig{
		SiteURL:           siteURL,
		IssuePattern:      IssuePatternYear,
		DownloadLabels:    []string{"Download Now"},
		ReadOnlineLabels:  []string{"Read Online"},
		GalleryImageAttrs: []string{"data-src"},
	}
}
