package writer

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteArchive(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for _, name := range []string{"001.jpg", "002.png", "003.jpg"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("img "+name), 0o644))
		files = append(files, p)
	}

	out := filepath.Join(dir, "lib", "Saga", "Saga 001.cbr")
	require.NoError(t, WriteArchive(out, files))

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"001.jpg", "002.png", "003.jpg"}, names)

	rc, err := zr.File[1].Open()
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "img 002.png", string(b))
}

func TestWriteArchive_Errors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, WriteArchive(filepath.Join(dir, "x.cbr"), nil))

	out := filepath.Join(dir, "y.cbr")
	assert.Error(t, WriteArchive(out, []string{filepath.Join(dir, "missing.jpg")}))
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "partial archive should be removed")
}

func TestWriteTXT(t *testing.T) {
	out := filepath.Join(t.TempDir(), "savedpage.txt")
	require.NoError(t, WriteTXT(out, "page one\n", "page two"))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "page one\npage two\n", string(b))

	assert.Error(t, WriteTXT(out))
}
