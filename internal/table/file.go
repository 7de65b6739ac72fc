// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package table

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// CreateFile creates path for writing. A ".zst" suffix compresses the
// output with zstd and ".gz" with gzip. Close flushes the compressor
// before closing the file.
func CreateFile(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".zst"):
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		return &compressedFile{w: enc, f: f}, nil
	case strings.HasSuffix(path, ".gz"):
		return &compressedFile{w: gzip.NewWriter(f), f: f}, nil
	default:
		return f, nil
	}
}

type compressedFile struct {
	w io.WriteCloser
	f *os.File
}

func (c *compressedFile) Write(p []byte) (int, error) { return c.w.Write(p) }

func (c *compressedFile) Close() error {
	werr := c.w.Close()
	ferr := c.f.Close()
	if werr != nil {
		return fmt.Errorf("flushing compressed output: %w", werr)
	}
	return ferr
}
