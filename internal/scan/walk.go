package scan

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/gosure/gosure/internal/sure"
)

// Warning is a non-fatal problem hit during a scan. The entry that
// caused it is skipped; the rest of the tree is still produced.
type Warning struct {
	Path string
	Err  error
}

type walker struct {
	src      DirSource
	sameDev  bool
	warnings []Warning
}

func (w *walker) warn(path string, err error) {
	w.warnings = append(w.warnings, Warning{Path: path, Err: err})
}

// walkRoot stats the root directory and descends. Crossing onto a
// different device stops the descent at that directory.
func (w *walker) walkRoot(root string) (*sure.Tree, error) {
	fi, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, &NotDirError{Path: root}
	}
	atts, dev := statAtts(root, fi, w.warn)
	return w.walkDir("__root__", root, atts, dev), nil
}

type dirEntry struct {
	name string
	path string
	atts map[string]string
	dev  uint64
	dir  bool
}

func (w *walker) walkDir(name, path string, atts map[string]string, dev uint64) *sure.Tree {
	tree := &sure.Tree{Name: name, Atts: atts}

	cur, err := w.src.Open(path)
	if err != nil {
		w.warn(path, err)
		return tree
	}

	var entries []dirEntry
	for {
		ename, _, ok, err := cur.Next()
		if err != nil {
			w.warn(path, err)
			break
		}
		if !ok {
			break
		}
		epath := filepath.Join(path, ename)
		fi, err := os.Lstat(epath)
		if err != nil {
			w.warn(epath, err)
			continue
		}
		eatts, edev := statAtts(epath, fi, w.warn)
		entries = append(entries, dirEntry{
			name: sure.Escape([]byte(ename)),
			path: epath,
			atts: eatts,
			dev:  edev,
			dir:  fi.IsDir(),
		})
	}
	cur.Close()

	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	for _, e := range entries {
		if e.dir {
			if w.sameDev && e.dev != dev {
				// Mount point: record the directory itself but
				// do not descend.
				tree.Children = append(tree.Children, &sure.Tree{Name: e.name, Atts: e.atts})
				continue
			}
			tree.Children = append(tree.Children, w.walkDir(e.name, e.path, e.atts, e.dev))
		} else {
			tree.Files = append(tree.Files, &sure.File{Name: e.name, Atts: e.atts})
		}
	}
	return tree
}

// NotDirError reports a scan root that is not a directory.
type NotDirError struct {
	Path string
}

func (e *NotDirError) Error() string {
	return "scan root is not a directory: " + e.Path
}
