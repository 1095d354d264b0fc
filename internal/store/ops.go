package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gosure/gosure/internal/scan"
	"github.com/gosure/gosure/internal/sure"
)

// Status is the outcome of an operation that compares snapshots.
type Status int

const (
	Clean Status = iota
	DiffsFound
)

// Update scans root and appends the result as a new snapshot. Unless
// opts.ForceRehash is set, digests are carried over from the latest
// stored snapshot where file identity matches.
func Update(ctx context.Context, st Store, root string, tags map[string]string, opts scan.Options) (*scan.Result, error) {
	if !opts.ForceRehash && opts.Prior == nil {
		prior, err := st.Load(Latest())
		switch {
		case err == nil:
			opts.Prior = prior
		case errors.Is(err, ErrNoSnapshot):
			// First snapshot of this tree.
		default:
			return nil, err
		}
	}

	res, err := scan.Scan(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	if err := st.WriteNew(res.Tree, tags); err != nil {
		return nil, err
	}
	return res, nil
}

// Scan scans root and appends the result without consulting prior
// snapshots, so every file is read and hashed.
func Scan(ctx context.Context, st Store, root string, tags map[string]string, opts scan.Options) (*scan.Result, error) {
	opts.Prior = nil
	opts.ForceRehash = true
	return Update(ctx, st, root, tags, opts)
}

// Check scans root and compares it against the stored snapshot v,
// writing differences to w. Nothing is written to the store.
func Check(ctx context.Context, st Store, root string, v Version, opts scan.Options, w io.Writer) (Status, *scan.Result, error) {
	old, err := st.Load(v)
	if err != nil {
		return Clean, nil, err
	}
	if !opts.ForceRehash {
		opts.Prior = old
	}
	res, err := scan.Scan(ctx, root, opts)
	if err != nil {
		return Clean, nil, err
	}
	return report(old, res.Tree, w), res, nil
}

// Signoff compares the two most recent stored snapshots, writing
// differences to w.
func Signoff(st Store, w io.Writer) (Status, error) {
	old, err := st.Load(Prior())
	if err != nil {
		return Clean, err
	}
	cur, err := st.Load(Latest())
	if err != nil {
		return Clean, err
	}
	return report(old, cur, w), nil
}

func report(old, cur *sure.Tree, w io.Writer) Status {
	v := &sure.PrintVisitor{W: w}
	sure.Compare(old, cur, "", v)
	if v.Count > 0 {
		return DiffsFound
	}
	return Clean
}

// Show dumps the snapshot v as a listing of paths and attributes.
func Show(st Store, v Version, w io.Writer) error {
	tree, err := st.Load(v)
	if err != nil {
		return err
	}
	return showTree(tree, "", w)
}

func showTree(t *sure.Tree, prefix string, w io.Writer) error {
	path := prefix
	if path == "" {
		path = "."
	}
	if _, err := fmt.Fprintf(w, "%-4s %s %s\n", sure.KindDir, path, sure.FormatAtts(t.Atts)); err != nil {
		return err
	}
	for _, f := range t.Files {
		name, err := sure.Unescape(f.Name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%-4s %s %s\n", f.Kind(), joinPath(prefix, string(name)), sure.FormatAtts(f.Atts)); err != nil {
			return err
		}
	}
	for _, ch := range t.Children {
		name, err := sure.Unescape(ch.Name)
		if err != nil {
			return err
		}
		if err := showTree(ch, joinPath(prefix, string(name)), w); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// List writes the stored revisions, newest first.
func List(st Store, w io.Writer) error {
	revs, err := st.Versions()
	if err != nil {
		return err
	}
	for _, r := range revs {
		if _, err := fmt.Fprintf(w, "%4d  %-20s  %s\n", r.Number, r.Name, r.Time.Local().Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
	}
	return nil
}
