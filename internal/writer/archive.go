package writer

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteArchive packs files into a zip container at outPath, in the given
// order, each stored under its base name.
func WriteArchive(outPath string, files []string) (err error) {
	if len(files) == 0 {
		return fmt.Errorf("WriteArchive: no files provided")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(outPath)
		}
	}()

	w := zip.NewWriter(out)
	for _, file := range files {
		if err := addFile(w, file); err != nil {
			w.Close()
			return fmt.Errorf("add %s: %w", filepath.Base(file), err)
		}
	}
	return w.Close()
}

func addFile(w *zip.Writer, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(stat)
	if err != nil {
		return err
	}
	// Overwrite whatever's there with what we want.
	header.Name = filepath.Base(file)
	// Page images are already compressed.
	header.Method = zip.Store

	dst, err := w.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}
