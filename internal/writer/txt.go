package writer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteTXT writes sections to outPath, one after another, each ending in a
// newline. Used to keep a copy of fetched search pages for debugging.
func WriteTXT(outPath string, sections ...string) error {
	if len(sections) == 0 {
		return fmt.Errorf("WriteTXT: no content provided")
	}
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, s := range sections {
		if _, err := w.WriteString(strings.TrimRight(s, "\n") + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
