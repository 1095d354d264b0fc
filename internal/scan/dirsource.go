package scan

import (
	"io"
	"os"
)

// EntryKind is the coarse type a directory cursor reports for an entry.
type EntryKind int

const (
	KindUnknown EntryKind = iota
	KindDir
	KindRegular
	KindSymlink
	KindOther
)

// DirSource is the narrow directory-iteration capability the scanner
// depends on: open a directory, pull entries one at a time, close.
// Restart by reopening.
type DirSource interface {
	Open(path string) (DirCursor, error)
}

// DirCursor yields one entry name and kind per call.
type DirCursor interface {
	Next() (name string, kind EntryKind, ok bool, err error)
	Close() error
}

type osDirSource struct{}

// OSDirSource iterates real directories via the operating system.
func OSDirSource() DirSource { return osDirSource{} }

func (osDirSource) Open(path string) (DirCursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &osDirCursor{f: f}, nil
}

type osDirCursor struct {
	f     *os.File
	batch []os.DirEntry
	pos   int
	done  bool
}

func (c *osDirCursor) Next() (string, EntryKind, bool, error) {
	for c.pos >= len(c.batch) {
		if c.done {
			return "", KindUnknown, false, nil
		}
		batch, err := c.f.ReadDir(128)
		if err == io.EOF {
			c.done = true
		} else if err != nil {
			return "", KindUnknown, false, err
		}
		if len(batch) == 0 {
			c.done = true
		}
		c.batch = batch
		c.pos = 0
	}

	ent := c.batch[c.pos]
	c.pos++

	kind := KindOther
	switch {
	case ent.IsDir():
		kind = KindDir
	case ent.Type()&os.ModeSymlink != 0:
		kind = KindSymlink
	case ent.Type().IsRegular():
		kind = KindRegular
	}
	return ent.Name(), kind, true, nil
}

func (c *osDirCursor) Close() error { return c.f.Close() }
