package console

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

var bold = lipgloss.NewStyle().Bold(true)

// Printer narrates a run. Silent drops everything; Verbose adds diagnostics.
type Printer struct {
	w       io.Writer
	Silent  bool
	Verbose bool
}

func NewPrinter(w io.Writer, silent, verbose bool) *Printer {
	return &Printer{w: w, Silent: silent, Verbose: verbose && !silent}
}

// Printf writes unless silent.
func (p *Printer) Printf(format string, args ...any) {
	if p == nil || p.Silent {
		return
	}
	fmt.Fprintf(p.w, format, args...)
}

// Debugf writes only in verbose mode.
func (p *Printer) Debugf(format string, args ...any) {
	if p == nil || !p.Verbose {
		return
	}
	fmt.Fprintf(p.w, format, args...)
}

// Bold renders s in bold for the title header line.
func (p *Printer) Bold(s string) string {
	return bold.Render(s)
}

// Headers dumps response headers in verbose mode.
func (p *Printer) Headers(hs []http.Header) {
	if p == nil || !p.Verbose {
		return
	}
	for i, h := range hs {
		fmt.Fprintf(p.w, "Response %d:\n", i+1)
		keys := make([]string, 0, len(h))
		for k := range h {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range h[k] {
				fmt.Fprintf(p.w, "  %s: %s\n", k, v)
			}
		}
	}
}

// Progress returns a byte progress tracker for a download, or nil when silent.
func (p *Printer) Progress(description string) *Progress {
	if p == nil || p.Silent {
		return nil
	}
	return &Progress{w: p.w, desc: description}
}

// Progress draws a byte counter, or a percentage bar when the size is known.
// It satisfies fetch.Tracker.
type Progress struct {
	w    io.Writer
	desc string
	bar  *progressbar.ProgressBar
}

func (pr *Progress) Track(total int64) io.Writer {
	pr.bar = progressbar.NewOptions64(
		total,
		progressbar.OptionSetWriter(pr.w),
		progressbar.OptionSetDescription(pr.desc),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(0),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return pr.bar
}

func (pr *Progress) Done() {
	if pr.bar == nil {
		return
	}
	pr.bar.Finish()
	fmt.Fprintln(pr.w)
}
