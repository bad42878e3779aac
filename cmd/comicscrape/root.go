package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vjovkovs/comicscrape/internal/app"
	"github.com/vjovkovs/comicscrape/internal/config"
	"github.com/vjovkovs/comicscrape/internal/console"
	"github.com/vjovkovs/comicscrape/internal/download"
	"github.com/vjovkovs/comicscrape/internal/fetch"
	"github.com/vjovkovs/comicscrape/internal/metadata"
	"github.com/vjovkovs/comicscrape/internal/model"
	"github.com/vjovkovs/comicscrape/internal/naming"
	"github.com/vjovkovs/comicscrape/internal/notify"
	"github.com/vjovkovs/comicscrape/internal/parse"
	"github.com/vjovkovs/comicscrape/internal/search"
	"github.com/vjovkovs/comicscrape/internal/storage"
)

var errAddWithoutTitle = errors.New("-a only functions in the context of a command-line title provided with -t")

type flags struct {
	titles     []string
	add        bool
	silent     bool
	verbose    bool
	configPath string
	grep       string
	mailTo     string
	saveSearch string
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "comicscrape",
		Short: "Fetch new issues of the series you follow",
		Long: "Scans the comic library for the latest issue of every configured title,\n" +
			"searches the catalog for the next ones and downloads them into the library.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd.Context(), f, cmd.OutOrStdout())
		},
	}

	fl := cmd.Flags()
	fl.StringArrayVarP(&f.titles, "title", "t", nil,
		`Title to run instead of the titles file. Can appear more than once (-t "Walking Dead" -t "Saga")`)
	fl.BoolVarP(&f.add, "add", "a", false, "In combination with -t, add these titles to the titles file")
	fl.BoolVarP(&f.silent, "silent", "s", false, "No output")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "Extra output, including response headers")
	fl.StringVarP(&f.configPath, "config", "c", config.DefaultFile, "Config file")
	fl.StringVarP(&f.grep, "grep", "g", "", "Search the titles for a pattern and exit")
	fl.StringVarP(&f.mailTo, "mail", "m", "", "Email the run summary to an address")
	fl.StringVar(&f.saveSearch, "save-search", "", "Write the fetched search pages to this file")
	return cmd
}

func execute(ctx context.Context, f flags, stdout io.Writer) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.add && len(f.titles) == 0 {
		return errAddWithoutTitle
	}

	lines := f.titles
	if len(lines) == 0 {
		if lines, err = config.ReadTitles(cfg.TitlesFile); err != nil {
			return err
		}
	}

	if f.grep != "" {
		hits, err := config.GrepTitles(lines, f.grep)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Fprintln(stdout, "Not Found")
		} else {
			fmt.Fprintf(stdout, "Found: %s\n", strings.Join(hits, ", "))
		}
		return nil
	}

	if f.add {
		for _, l := range lines {
			added, err := config.AppendTitle(cfg.TitlesFile, l)
			if err != nil {
				return fmt.Errorf("add %q: %w", l, err)
			}
			if added {
				log.Printf("added %q to %s", l, cfg.TitlesFile)
			}
		}
	}

	out := console.NewPrinter(stdout, f.silent, f.verbose)
	res, err := newRunner(cfg, out, f.saveSearch).Run(ctx, model.ParseTitles(lines))
	if err != nil {
		return err
	}

	summary := res.Summary()
	out.Printf("\n------\n\n%s", summary)

	if f.mailTo != "" {
		m := notify.NewMailer(notify.Options{
			Addr:     cfg.SMTP.Addr,
			From:     cfg.SMTP.From,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
		})
		if err := m.Send(f.mailTo, notify.Subject, summary); err != nil {
			log.Printf("mail summary: %v", err)
		}
	}
	return nil
}

func newRunner(cfg *config.Config, out *console.Printer, searchDump string) *app.Runner {
	client := fetch.NewClient(fetch.Options{
		Timeout:   cfg.RequestTimeout,
		UserAgent: cfg.UserAgent,
		Delay:     cfg.RequestDelay,
	})
	parser := parse.NewCatalog(cfg.ParserConfig())

	var lookup naming.Lookup
	if cfg.ComicvineKey != "" {
		lookup = metadata.NewComicVine(client, cfg.ComicvineURL, cfg.ComicvineKey)
	}

	return app.NewRunner(app.Deps{
		Store: storage.NewFS(cfg.ComicDirectory),
		Search: search.NewAggregator(client, parser, search.Options{
			SiteURL:                        cfg.SiteURL,
			QueryFormat:                    cfg.QueryFormat,
			MaxDepth:                       cfg.MaxPageDepth,
			OnlyFirstPageForExistingSeries: cfg.OnlyFirstPageForExistingSeries,
		}),
		Parser:   parser,
		Resolver: download.NewResolver(client, parser, out, download.Options{}),
		Names:    naming.NewResolver(lookup),
		Out:      out,
	}, app.Options{
		ConfigName: cfg.Name(),
		SearchDump: searchDump,
	})
}
