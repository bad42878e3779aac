package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vjovkovs/comicscrape/internal/metadata"
	"github.com/vjovkovs/comicscrape/internal/model"
)

// ErrMissingField is wrapped by Validate for every required key left empty.
var ErrMissingField = errors.New("missing required config field")

// DefaultFile is read when no config path is given.
const DefaultFile = "scrapeConfig.json"

type SMTP struct {
	Addr     string `mapstructure:"addr"`
	From     string `mapstructure:"from"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// Config is the run configuration. Keys are matched case-insensitively.
type Config struct {
	TitlesFile                     string        `mapstructure:"titlesFile"`
	ComicDirectory                 string        `mapstructure:"comicDirectory"`
	SiteURL                        string        `mapstructure:"siteUrl"`
	QueryFormat                    string        `mapstructure:"queryFormat"`
	MaxPageDepth                   int           `mapstructure:"maxPageDepth"`
	OnlyFirstPageForExistingSeries bool          `mapstructure:"onlyFirstPageForExistingSeries"`
	ComicvineKey                   string        `mapstructure:"ComicvineKey"`
	ComicvineURL                   string        `mapstructure:"comicvineUrl"`
	IssuePattern                   string        `mapstructure:"issuePattern"`
	UserAgent                      string        `mapstructure:"userAgent"`
	RequestTimeout                 time.Duration `mapstructure:"requestTimeout"`
	RequestDelay                   time.Duration `mapstructure:"requestDelay"`
	SMTP                           SMTP          `mapstructure:"smtp"`

	// Path is the file the config was loaded from.
	Path string `mapstructure:"-"`
}

// Load reads the JSON config at path, applies defaults and validates it.
// A relative titlesFile is resolved against the config file's directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("titlesFile", "titles.txt")
	v.SetDefault("queryFormat", "?s=")
	v.SetDefault("maxPageDepth", 1)
	v.SetDefault("onlyFirstPageForExistingSeries", false)
	v.SetDefault("comicvineUrl", metadata.DefaultComicVineURL)
	v.SetDefault("issuePattern", model.IssuePatternYear)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file %q is not readable: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	c.Path = path
	if c.TitlesFile != "" && !filepath.IsAbs(c.TitlesFile) {
		c.TitlesFile = filepath.Join(filepath.Dir(path), c.TitlesFile)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ComicDirectory) == "" {
		errs = append(errs, fmt.Errorf("%w: comicDirectory", ErrMissingField))
	}
	if strings.TrimSpace(c.SiteURL) == "" {
		errs = append(errs, fmt.Errorf("%w: siteUrl", ErrMissingField))
	}
	if strings.TrimSpace(c.TitlesFile) == "" {
		errs = append(errs, fmt.Errorf("%w: titlesFile", ErrMissingField))
	}
	switch c.IssuePattern {
	case model.IssuePatternYear, model.IssuePatternStrict:
	default:
		errs = append(errs, fmt.Errorf("issuePattern %q: want %q or %q",
			c.IssuePattern, model.IssuePatternYear, model.IssuePatternStrict))
	}
	if c.MaxPageDepth < 1 {
		errs = append(errs, fmt.Errorf("maxPageDepth must be at least 1, got %d", c.MaxPageDepth))
	}
	return errors.Join(errs...)
}

// Name is the config file's base name, used in the run summary.
func (c *Config) Name() string {
	return filepath.Base(c.Path)
}

// ParserConfig derives the catalog parser settings.
func (c *Config) ParserConfig() model.ParserConfig {
	pc := model.DefaultParserConfig(c.SiteURL)
	pc.IssuePattern = c.IssuePattern
	return pc
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTP.Addr != ""
}

// ReadTitles returns the lines of a titles file with trailing whitespace
// trimmed. Blank lines are skipped.
func ReadTitles(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read titles: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimRightFunc(sc.Text(), func(r rune) bool {
			return r == ' ' || r == '\t' || r == '\r'
		})
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read titles: %w", err)
	}
	return lines, nil
}

// AppendTitle adds line to the titles file unless an identical line is
// already present. The file is created if needed. It reports whether the
// line was written.
func AppendTitle(path, line string) (bool, error) {
	existing, err := ReadTitles(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	for _, l := range existing {
		if l == line {
			return false, nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// the last line may lack a newline
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		if b, err := os.ReadFile(path); err == nil && b[len(b)-1] != '\n' {
			line = "\n" + line
		}
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// GrepTitles returns the trimmed lines matching pattern, case-insensitively.
func GrepTitles(lines []string, pattern string) ([]string, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("grep pattern: %w", err)
	}
	var out []string
	for _, l := range lines {
		if re.MatchString(l) {
			out = append(out, strings.TrimSpace(l))
		}
	}
	return out, nil
}
