// Package store persists snapshot trees. The default backend keeps
// every snapshot in a single weave file; a plain backend keeps only
// the latest snapshot plus one backup, matching older surefile
// layouts.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosure/gosure/internal/fs"
	"github.com/gosure/gosure/internal/sure"
)

// ErrNoSnapshot reports a load from a store that holds no snapshot
// for the requested version.
var ErrNoSnapshot = errors.New("store holds no such snapshot")

// VersionKind selects how a snapshot is addressed.
type VersionKind int

const (
	KindLatest VersionKind = iota
	KindPrior
	KindTagged
)

// Version addresses one stored snapshot.
type Version struct {
	Kind VersionKind
	Tag  string
}

func Latest() Version          { return Version{Kind: KindLatest} }
func Prior() Version           { return Version{Kind: KindPrior} }
func Tagged(tag string) Version { return Version{Kind: KindTagged, Tag: tag} }

// Revision describes one stored snapshot.
type Revision struct {
	Name   string
	Number int
	Time   time.Time
}

// Store reads and writes snapshot trees.
type Store interface {
	// WriteNew appends tree as the newest snapshot. The tags are
	// recorded with it; a "name" tag is filled in if missing.
	WriteNew(tree *sure.Tree, tags map[string]string) error
	// Load returns the snapshot addressed by v.
	Load(v Version) (*sure.Tree, error)
	// Versions lists stored snapshots, newest first.
	Versions() ([]Revision, error)
}

// Open interprets path as a store location:
//
//   - a directory selects a plain store named 2sure inside it,
//     compressed according to compress
//   - a *.weave file selects a weave store
//   - *.dat and *.bak files select a plain store under the remaining
//     base name
//
// For file paths a trailing .gz decides compression: present means
// compressed, absent means not, regardless of compress. Unsuffixed
// file names default to a weave store.
func Open(path string, compress bool, fsys fs.FS) (Store, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return NewPlainStore(path, "2sure", compress, fsys), nil
	}

	dir := filepath.Dir(path)
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("store path %q has no file name", path)
	}

	compressed := false
	if strings.HasSuffix(name, ".gz") {
		compressed = true
		name = strings.TrimSuffix(name, ".gz")
	}

	switch {
	case strings.HasSuffix(name, ".weave"):
		return NewWeaveStore(dir, strings.TrimSuffix(name, ".weave"), compressed, fsys), nil
	case strings.HasSuffix(name, ".dat"):
		return NewPlainStore(dir, strings.TrimSuffix(name, ".dat"), compressed, fsys), nil
	case strings.HasSuffix(name, ".bak"):
		return NewPlainStore(dir, strings.TrimSuffix(name, ".bak"), compressed, fsys), nil
	default:
		return NewWeaveStore(dir, name, compressed, fsys), nil
	}
}
