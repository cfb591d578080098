package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/atwilso/tracktable/internal/shutdown"
)

// readCloser closes every layer of a decompressing reader, innermost last.
type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openInput opens path for reading, or stdin for "-". Files ending in .gz
// or .zst are decompressed.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &readCloser{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return &readCloser{Reader: zr, closers: []func() error{
			func() error { zr.Close(); return nil },
			f.Close,
		}}, nil
	}
	return f, nil
}

// closerFunc adapts a function to shutdown.Shutdownable.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// createOutput creates path for writing, or uses stdout for "-". Files
// ending in .gz or .zst are compressed. Every layer is registered with the
// shutdown coordinator so it is flushed and closed in order.
func (a *app) createOutput(path string) (io.Writer, error) {
	var base io.Writer = a.stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		a.shutdown.Register("file "+path, f, shutdown.PriorityFiles)
		base = f
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zw := gzip.NewWriter(base)
		a.shutdown.Register("gzip "+path, zw, shutdown.PriorityCompression)
		base = zw
	case ".zst", ".zstd":
		zw, err := zstd.NewWriter(base)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		a.shutdown.Register("zstd "+path, zw, shutdown.PriorityCompression)
		base = zw
	}

	bw := bufio.NewWriter(base)
	a.shutdown.Register("buffer "+path, closerFunc(bw.Flush), shutdown.PriorityBuffers)
	return bw, nil
}
