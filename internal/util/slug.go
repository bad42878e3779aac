package util

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify turns "Once & Future: Äß Vol. 1" -> "once-future-ass-vol-1"
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	// Decompose accents (NFD) and drop combining marks.
	decomposed := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(decomposed))

	prevHyphen := false
	for _, r := range decomposed {
		// Strip diacritics
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		case r == 'ß':
			b.WriteString("ss")
			prevHyphen = false
		default:
			// Any other char becomes a single hyphen (collapse runs)
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// PadIssue renders an issue number the way the library names files: 7 -> "007".
func PadIssue(n int) string {
	return fmt.Sprintf("%03d", n)
}
