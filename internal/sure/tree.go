// Package sure holds the in-memory snapshot model of a scanned
// filesystem tree and its line-oriented serialization, the surefile
// format. One filesystem entry is one line, so the weave's line diff
// operates at the granularity of changed entries.
package sure

// Entry kinds stored in the "kind" attribute.
const (
	KindDir   = "dir"
	KindFile  = "file"
	KindLink  = "lnk"
	KindFifo  = "fifo"
	KindSock  = "sock"
	KindChar  = "chr"
	KindBlock = "blk"
)

// Tree is one directory of a snapshot: its own attributes, its
// subdirectories and its non-directory entries. Names are stored in
// escaped form (see Escape) and both slices are sorted by name, which
// makes traversal order deterministic regardless of scan order.
type Tree struct {
	Name     string
	Atts     map[string]string
	Children []*Tree
	Files    []*File
}

// File is one non-directory entry.
type File struct {
	Name string
	Atts map[string]string
}

func (f *File) Kind() string { return f.Atts["kind"] }

// IsReg reports whether this entry is a regular file.
func (f *File) IsReg() bool { return f.Atts["kind"] == KindFile }

// NeedsHash reports whether this entry is a regular file still missing
// a digest for the given algorithm.
func (f *File) NeedsHash(algo string) bool {
	if !f.IsReg() {
		return false
	}
	_, ok := f.Atts[algo]
	return !ok
}

// Size returns the recorded size of the entry, or 0.
func (f *File) Size() int64 {
	return AttInt(f.Atts, "size")
}
