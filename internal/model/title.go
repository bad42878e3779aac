package model

import "strings"

// TitleDelimiter separates a catalog search term from the name used on disk.
const TitleDelimiter = "|"

// Title is one tracked series.
type Title struct {
	SearchTerm   string `json:"searchTerm"`   // used for catalog queries and the URL slug
	DisplayTitle string `json:"displayTitle"` // used for the directory, filenames and owned-issue matching
}

// ParseTitle reads one titles-list line. "Once & Future|Once and Future"
// searches for the first half and saves under the second; a line without the
// delimiter uses the trimmed line for both.
func ParseTitle(line string) Title {
	line = strings.TrimSpace(line)
	term, display, found := strings.Cut(line, TitleDelimiter)
	if !found {
		return Title{SearchTerm: line, DisplayTitle: line}
	}
	term = strings.TrimSpace(term)
	display = strings.TrimSpace(display)
	if display == "" {
		display = term
	}
	return Title{SearchTerm: term, DisplayTitle: display}
}

// ParseTitles parses every non-blank line, keeping input order.
func ParseTitles(lines []string) []Title {
	out := make([]Title, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, ParseTitle(l))
	}
	return out
}

func (t Title) String() string {
	if t.SearchTerm == t.DisplayTitle {
		return t.DisplayTitle
	}
	return t.SearchTerm + TitleDelimiter + t.DisplayTitle
}
