// internal/storage/fs.go
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// FS is the on-disk comic library: <root>/<title>/<file>.
type FS struct{ dir string }

func NewFS(dir string) *FS {
	return &FS{dir: dir}
}

func (f *FS) Root() string { return f.dir }

// TitleDir returns <root>/<title>, creating it when missing.
func (f *FS) TitleDir(title string) (string, error) {
	dir := filepath.Join(f.dir, title)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// Path is where a file named name for title is stored.
func (f *FS) Path(title, name string) string {
	return filepath.Join(f.dir, title, name)
}

// LatestIssue returns the highest issue number among files named
// "<title> [#][v]<n>..." in the title's directory, or 0 when none match.
// Existing files are only read, never touched.
func (f *FS) LatestIssue(title string) (int, error) {
	dir, err := f.TitleDir(title)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", dir, err)
	}

	re := issueRegexp(title)
	latest := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		latest = max(latest, n)
	}
	return latest, nil
}

func issueRegexp(title string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(strings.TrimSpace(title)) + `\s+#?v?(\d+)`)
}

// Save writes data to <root>/<title>/<name> and returns the full path.
func (f *FS) Save(title, name string, data []byte) (string, error) {
	if _, err := f.TitleDir(title); err != nil {
		return "", err
	}
	path := f.Path(title, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
