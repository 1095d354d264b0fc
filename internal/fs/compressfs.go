package fs

import (
	"compress/gzip"
	"io"
	"os"
)

// CompressFS wraps another FS and gzip-compresses file content.
// Reads are decompressed and writes are compressed transparently; all
// other operations pass through to the underlying FS.
type CompressFS struct {
	underlying FS
}

func NewCompressFS(base FS) *CompressFS {
	return &CompressFS{underlying: base}
}

func (c *CompressFS) Open(path string) (io.ReadCloser, error) {
	rc, err := c.underlying.Open(path)
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &gzReadCloser{gz: gz, raw: rc}, nil
}

type gzReadCloser struct {
	gz  *gzip.Reader
	raw io.Closer
}

func (r *gzReadCloser) Read(p []byte) (int, error) { return r.gz.Read(p) }

func (r *gzReadCloser) Close() error {
	err := r.gz.Close()
	if cerr := r.raw.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *CompressFS) Create(path string) (io.WriteCloser, error) {
	wc, err := c.underlying.Create(path)
	if err != nil {
		return nil, err
	}
	return &gzWriteCloser{gz: gzip.NewWriter(wc), raw: wc}, nil
}

func (c *CompressFS) CreateNew(path string) (io.WriteCloser, error) {
	wc, err := c.underlying.CreateNew(path)
	if err != nil {
		return nil, err
	}
	return &gzWriteCloser{gz: gzip.NewWriter(wc), raw: wc}, nil
}

type gzWriteCloser struct {
	gz  *gzip.Writer
	raw io.WriteCloser
}

func (w *gzWriteCloser) Write(p []byte) (int, error) { return w.gz.Write(p) }

func (w *gzWriteCloser) Close() error {
	err := w.gz.Close()
	if cerr := w.raw.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *CompressFS) ReadFile(path string) ([]byte, error) {
	rc, err := c.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (c *CompressFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	wc, err := c.Create(path)
	if err != nil {
		return err
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

// Pass-through for other operations
func (c *CompressFS) MkdirAll(path string, perm os.FileMode) error {
	return c.underlying.MkdirAll(path, perm)
}
func (c *CompressFS) Remove(path string) error { return c.underlying.Remove(path) }
func (c *CompressFS) Rename(oldPath, newPath string) error {
	return c.underlying.Rename(oldPath, newPath)
}
func (c *CompressFS) Stat(path string) (os.FileInfo, error) { return c.underlying.Stat(path) }
func (c *CompressFS) IsNotExist(err error) bool             { return c.underlying.IsNotExist(err) }
func (c *CompressFS) Exists(path string) bool               { return c.underlying.Exists(path) }
