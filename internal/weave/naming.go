package weave

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"path/filepath"
	"strconv"

	"github.com/gosure/gosure/internal/fs"
)

// Naming determines the file names used around a weave: the main file,
// its backup, and fresh temporary files. The main file is never written
// directly; new content goes to a temp file and is renamed into place by
// Rotate, so a crash mid-write cannot corrupt committed history.
type Naming interface {
	MainFile() string
	BackupFile() string

	// OpenMain opens the main file for reading, decompressing if the
	// convention compresses.
	OpenMain() (io.ReadCloser, error)

	// TempFile creates a file that did not exist before this call.
	// Compression follows the convention when compressed is true.
	TempFile(compressed bool) (string, io.WriteCloser, error)

	// Rotate moves the main file to the backup name (if present) and
	// atomically installs the named temp file as the new main file.
	Rotate(tempName string) error

	Remove(name string) error
	Exists() bool
	Compressed() bool
}

// SimpleNaming names the main file "<base>.<ext>", the backup
// "<base>.bak", and temp files "<base>.0", "<base>.1", ... A ".gz"
// suffix is appended to compressed files.
type SimpleNaming struct {
	dir      string
	base     string
	ext      string
	compress bool
	fsys     fs.FS
	zfs      fs.FS
}

func NewSimpleNaming(dir, base, ext string, compress bool, fsys fs.FS) *SimpleNaming {
	if fsys == nil {
		fsys = fs.NewOSFS()
	}
	return &SimpleNaming{
		dir:      dir,
		base:     base,
		ext:      ext,
		compress: compress,
		fsys:     fsys,
		zfs:      fs.NewCompressFS(fsys),
	}
}

func (n *SimpleNaming) makeName(ext string, compressed bool) string {
	name := n.base + "." + ext
	if compressed {
		name += ".gz"
	}
	return filepath.Join(n.dir, name)
}

func (n *SimpleNaming) MainFile() string   { return n.makeName(n.ext, n.compress) }
func (n *SimpleNaming) BackupFile() string { return n.makeName("bak", n.compress) }
func (n *SimpleNaming) Compressed() bool   { return n.compress }

func (n *SimpleNaming) Exists() bool {
	return n.fsys.Exists(n.MainFile())
}

func (n *SimpleNaming) OpenMain() (io.ReadCloser, error) {
	if n.compress {
		return n.zfs.Open(n.MainFile())
	}
	return n.fsys.Open(n.MainFile())
}

func (n *SimpleNaming) TempFile(compressed bool) (string, io.WriteCloser, error) {
	fsys := n.fsys
	if compressed {
		fsys = n.zfs
	}
	for i := 0; ; i++ {
		name := n.makeName(strconv.Itoa(i), compressed)
		w, err := fsys.CreateNew(name)
		if err == nil {
			return name, w, nil
		}
		if errors.Is(err, iofs.ErrExist) {
			continue
		}
		return "", nil, fmt.Errorf("create weave temp file %q: %w", name, err)
	}
}

func (n *SimpleNaming) Rotate(tempName string) error {
	// Backup rotation failure is fine on the very first write.
	_ = n.fsys.Rename(n.MainFile(), n.BackupFile())
	if err := n.fsys.Rename(tempName, n.MainFile()); err != nil {
		return fmt.Errorf("install weave file %q: %w", n.MainFile(), err)
	}
	return nil
}

func (n *SimpleNaming) Remove(name string) error {
	return n.fsys.Remove(name)
}
