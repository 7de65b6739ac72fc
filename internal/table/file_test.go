package table

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	w, err := CreateFile(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestCreateFilePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	writeFile(t, path, "a,b\n")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestCreateFileZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json.zst")
	writeFile(t, path, `[{"dc:title":"x"}]`)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()
	data, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, `[{"dc:title":"x"}]`, string(data))
}

func TestCreateFileGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml.gz")
	writeFile(t, path, "- title: x\n")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "- title: x\n", string(data))
}

func TestCreateFileBadDir(t *testing.T) {
	_, err := CreateFile(filepath.Join(t.TempDir(), "missing", "out.csv"))
	assert.ErrorContains(t, err, "creating output file")
}
