package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/vjovkovs/comicscrape/internal/console"
	"github.com/vjovkovs/comicscrape/internal/download"
	"github.com/vjovkovs/comicscrape/internal/model"
	"github.com/vjovkovs/comicscrape/internal/naming"
	"github.com/vjovkovs/comicscrape/internal/parse"
	"github.com/vjovkovs/comicscrape/internal/search"
	"github.com/vjovkovs/comicscrape/internal/storage"
	"github.com/vjovkovs/comicscrape/internal/util"
	"github.com/vjovkovs/comicscrape/internal/writer"
)

// Options controls a run.
type Options struct {
	ConfigName string // shown in the summary
	SearchDump string // if set, every title's search corpus is written to this file
}

// Deps are the collaborators of a Runner.
type Deps struct {
	Store    *storage.FS
	Search   *search.Aggregator
	Parser   parse.PageParser
	Resolver *download.Resolver
	Names    *naming.Resolver
	Out      *console.Printer
}

// TitleResult is what happened to one title.
type TitleResult struct {
	Title       model.Title
	LatestOwned int
	Saved       []string
	Err         error // set when the title was abandoned
}

// RunResult is returned by Runner.Run and lists every saved issue.
type RunResult struct {
	ConfigName string
	Titles     []TitleResult
}

// Saved returns the paths of all files written, in the order they were saved.
func (r RunResult) Saved() []string {
	var out []string
	for _, t := range r.Titles {
		out = append(out, t.Saved...)
	}
	return out
}

// Summary is the plain-text end-of-run report.
func (r RunResult) Summary() string {
	saved := r.Saved()
	var b strings.Builder
	fmt.Fprintf(&b, "Run Complete for config %s.\n%d downloaded issues.\n", r.ConfigName, len(saved))
	for _, p := range saved {
		fmt.Fprintf(&b, " %s\n", p)
	}
	return b.String()
}

// Runner orchestrates scan → search → locate → resolve → save per title.
type Runner struct {
	d   Deps
	opt Options
}

func NewRunner(d Deps, opt Options) *Runner {
	out := d.Out
	d.Search.WithObserver(search.Observer{
		Page:   func(i int) { out.Printf("%d... ", i) },
		Missed: func(i int, err error) { out.Debugf("(page %d: %v) ", i, err) },
		Found:  func(int) { out.Printf("Found target issue, stopping.") },
	})
	return &Runner{d: d, opt: opt}
}

// Run processes titles one after another in the given order. A failing
// title is recorded and skipped; only a cancelled ctx stops the run early.
func (r *Runner) Run(ctx context.Context, titles []model.Title) (RunResult, error) {
	res := RunResult{ConfigName: r.opt.ConfigName}
	var corpora []string

	for _, t := range titles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tr, corpus := r.runTitle(ctx, t)
		if tr.Err != nil {
			log.Printf("title %q: %v", t.DisplayTitle, tr.Err)
		}
		res.Titles = append(res.Titles, tr)
		corpora = append(corpora, corpus)
	}

	if r.opt.SearchDump != "" && len(corpora) > 0 {
		if err := writer.WriteTXT(r.opt.SearchDump, corpora...); err != nil {
			log.Printf("write search dump: %v", err)
		}
	}
	return res, nil
}

type state int

const (
	stateSeeking state = iota
	stateResolving
	stateDone
)

// titleLoop is the per-title acquisition state.
type titleLoop struct {
	title    model.Title
	slug     string
	corpus   string
	wanted   int
	issueURL string
	result   *TitleResult
}

func (r *Runner) runTitle(ctx context.Context, t model.Title) (TitleResult, string) {
	tr := TitleResult{Title: t}

	latest, err := r.d.Store.LatestIssue(t.DisplayTitle)
	if err != nil {
		tr.Err = err
		return tr, ""
	}
	tr.LatestOwned = latest
	r.d.Out.Printf("%s - last issue saved is %d\n", r.d.Out.Bold(t.DisplayTitle), latest)

	r.d.Out.Printf(" Getting search page ")
	corpus, err := r.d.Search.Collect(ctx, t.SearchTerm, latest+1)
	r.d.Out.Printf("\n")
	if err != nil {
		tr.Err = err
		return tr, corpus
	}

	l := &titleLoop{
		title:  t,
		slug:   util.Slugify(t.SearchTerm),
		corpus: corpus,
		wanted: latest + 1,
		result: &tr,
	}
	for st := stateSeeking; st != stateDone; {
		switch st {
		case stateSeeking:
			st = r.seek(l)
		case stateResolving:
			st = r.resolve(ctx, l)
		}
	}
	return tr, corpus
}

// seek looks for the wanted issue in the corpus: a hit moves on to
// resolving, a miss ends the title.
func (r *Runner) seek(l *titleLoop) state {
	u, ok := r.d.Parser.FindIssueURL(l.corpus, l.slug, l.wanted)
	if !ok {
		return stateDone
	}
	l.issueURL = u
	return stateResolving
}

// resolve downloads and saves the located issue. Success advances wanted
// and returns to seeking; any failure abandons the title.
func (r *Runner) resolve(ctx context.Context, l *titleLoop) state {
	r.d.Out.Printf("  Found issue %d. Downloading...\n", l.wanted)
	path, err := r.acquire(ctx, l.title, l.wanted, l.issueURL)
	if err != nil {
		r.d.Out.Printf("  Something strange about this download page; bailing on %s\n", l.slug)
		l.result.Err = fmt.Errorf("issue %d: %w", l.wanted, err)
		return stateDone
	}
	l.result.Saved = append(l.result.Saved, path)
	l.wanted++
	return stateSeeking
}

func (r *Runner) acquire(ctx context.Context, t model.Title, wanted int, issueURL string) (string, error) {
	res, err := r.d.Resolver.Resolve(ctx, issueURL)
	if err != nil {
		return "", err
	}
	defer res.Close()

	if res.Kind == download.Gallery {
		name := t.DisplayTitle + " " + util.PadIssue(wanted) + ".cbr"
		path := r.d.Store.Path(t.DisplayTitle, name)
		if err := writer.WriteArchive(path, res.Pages); err != nil {
			return "", fmt.Errorf("pack %s: %w", name, err)
		}
		r.d.Out.Printf("Saved: %s\n", name)
		return path, nil
	}

	r.d.Out.Headers(res.Payload.Headers)
	nr := r.d.Names.Resolve(ctx, naming.Request{
		Title:   t,
		Issue:   wanted,
		Headers: res.Payload.Headers,
		Payload: res.Payload.Body,
	})
	if nr.Source != naming.SourceHeader {
		r.d.Out.Printf("Error getting filename. Composing it on my own.\n")
	}
	path, err := r.d.Store.Save(t.DisplayTitle, nr.Name, res.Payload.Body)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", nr.Name, err)
	}
	r.d.Out.Printf("Saved: %s\n", nr.Name)
	return path, nil
}
