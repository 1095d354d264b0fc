package sure

import (
	"fmt"
	"io"
	"path"
	"sort"
)

// Action classifies one difference between two snapshots.
type Action int

const (
	Added Action = iota
	Removed
	Modified
)

// Change is one reported difference. Atts lists the names of the
// attributes that differ; it is nil for Added and Removed.
type Change struct {
	Path   string
	Dir    bool
	Action Action
	Atts   []string
}

// Visitor receives each difference found by Compare, in sorted path
// order.
type Visitor interface {
	Visit(ch Change)
}

// Compare walks both trees in lockstep by sorted name and reports every
// added, removed or attribute-modified path. Matched directories are
// descended into; an added or removed directory is reported once, not
// expanded. Paths with no differences produce no report.
func Compare(old, new *Tree, root string, v Visitor) {
	compareDirs(old, new, root, v)
}

func compareDirs(old, new *Tree, dir string, v Visitor) {
	i, j := 0, 0
	for i < len(old.Children) || j < len(new.Children) {
		switch {
		case j >= len(new.Children) || (i < len(old.Children) && old.Children[i].Name < new.Children[j].Name):
			v.Visit(Change{Path: path.Join(dir, old.Children[i].Name), Dir: true, Action: Removed})
			i++
		case i >= len(old.Children) || old.Children[i].Name > new.Children[j].Name:
			v.Visit(Change{Path: path.Join(dir, new.Children[j].Name), Dir: true, Action: Added})
			j++
		default:
			oc, nc := old.Children[i], new.Children[j]
			sub := path.Join(dir, nc.Name)
			if diffs := attDiff(oc.Atts, nc.Atts); len(diffs) > 0 {
				v.Visit(Change{Path: sub, Dir: true, Action: Modified, Atts: diffs})
			}
			compareDirs(oc, nc, sub, v)
			i++
			j++
		}
	}

	i, j = 0, 0
	for i < len(old.Files) || j < len(new.Files) {
		switch {
		case j >= len(new.Files) || (i < len(old.Files) && old.Files[i].Name < new.Files[j].Name):
			v.Visit(Change{Path: path.Join(dir, old.Files[i].Name), Action: Removed})
			i++
		case i >= len(old.Files) || old.Files[i].Name > new.Files[j].Name:
			v.Visit(Change{Path: path.Join(dir, new.Files[j].Name), Action: Added})
			j++
		default:
			of, nf := old.Files[i], new.Files[j]
			if diffs := attDiff(of.Atts, nf.Atts); len(diffs) > 0 {
				v.Visit(Change{Path: path.Join(dir, nf.Name), Action: Modified, Atts: diffs})
			}
			i++
			j++
		}
	}
}

// attDiff returns the sorted attribute names that differ between two
// entries. The ctime and ino attributes are excluded: a restored backup
// legitimately changes both, and the report should still be meaningful.
func attDiff(old, new map[string]string) []string {
	var diffs []string
	for k, nv := range new {
		if k == "ctime" || k == "ino" {
			continue
		}
		ov, ok := old[k]
		if !ok || ov != nv {
			diffs = append(diffs, k)
		}
	}
	for k := range old {
		if k == "ctime" || k == "ino" {
			continue
		}
		if _, ok := new[k]; !ok {
			diffs = append(diffs, k)
		}
	}
	sort.Strings(diffs)
	return diffs
}

// PrintVisitor writes each change as one stable, diffable text line and
// counts what it saw.
type PrintVisitor struct {
	W     io.Writer
	Count int
}

func (v *PrintVisitor) Visit(ch Change) {
	v.Count++

	kind := "file"
	if ch.Dir {
		kind = "dir"
	}

	switch ch.Action {
	case Added:
		fmt.Fprintf(v.W, "+ %-22s %s\n", kind, ch.Path)
	case Removed:
		fmt.Fprintf(v.W, "- %-22s %s\n", kind, ch.Path)
	default:
		atts := ""
		for i, a := range ch.Atts {
			if i > 0 {
				atts += ","
			}
			atts += a
		}
		fmt.Fprintf(v.W, "  [%-20s] %s\n", atts, ch.Path)
	}
}
