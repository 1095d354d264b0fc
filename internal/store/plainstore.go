package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"path/filepath"

	"github.com/gosure/gosure/internal/fs"
	"github.com/gosure/gosure/internal/sure"
)

// PlainStore keeps just the latest snapshot in <base>.dat and the one
// before it in <base>.bak. It cannot address older history or tags.
type PlainStore struct {
	dir      string
	base     string
	compress bool
	raw      fs.FS
	data     fs.FS
}

func NewPlainStore(dir, base string, compress bool, fsys fs.FS) *PlainStore {
	data := fsys
	if compress {
		data = fs.NewCompressFS(fsys)
	}
	return &PlainStore{dir: dir, base: base, compress: compress, raw: fsys, data: data}
}

func (s *PlainStore) name(ext string) string {
	n := s.base + "." + ext
	if s.compress {
		n += ".gz"
	}
	return filepath.Join(s.dir, n)
}

func (s *PlainStore) WriteNew(tree *sure.Tree, tags map[string]string) error {
	// Tags other than the implicit name cannot be represented here.
	tmp, w, err := s.tempFile()
	if err != nil {
		return fmt.Errorf("create snapshot temp: %w", err)
	}
	bw := bufio.NewWriter(w)
	for _, line := range tree.Encode() {
		if _, err := bw.WriteString(line); err != nil {
			w.Close()
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			w.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	// Rotate: the old main becomes the backup, then the temp slides
	// into place. A missing main on first write is fine.
	_ = s.raw.Rename(s.name("dat"), s.name("bak"))
	if err := s.raw.Rename(tmp, s.name("dat")); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *PlainStore) tempFile() (string, io.WriteCloser, error) {
	for i := 0; ; i++ {
		name := filepath.Join(s.dir, fmt.Sprintf("%s.%d", s.base, i))
		if s.compress {
			name += ".gz"
		}
		w, err := s.data.CreateNew(name)
		if err == nil {
			return name, w, nil
		}
		if !errors.Is(err, iofs.ErrExist) {
			return "", nil, err
		}
	}
}

func (s *PlainStore) Load(v Version) (*sure.Tree, error) {
	var path string
	switch v.Kind {
	case KindLatest:
		path = s.name("dat")
	case KindPrior:
		path = s.name("bak")
	case KindTagged:
		return nil, errors.New("plain stores do not keep named snapshots")
	default:
		return nil, fmt.Errorf("unknown version kind %d", v.Kind)
	}

	r, err := s.data.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return sure.DecodeLines(lines)
}

func (s *PlainStore) Versions() ([]Revision, error) {
	var revs []Revision
	if fi, err := s.raw.Stat(s.name("dat")); err == nil {
		revs = append(revs, Revision{Name: "current", Number: 2, Time: fi.ModTime()})
	}
	if fi, err := s.raw.Stat(s.name("bak")); err == nil {
		revs = append(revs, Revision{Name: "backup", Number: 1, Time: fi.ModTime()})
	}
	return revs, nil
}
