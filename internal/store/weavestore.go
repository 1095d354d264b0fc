package store

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"sort"
	"time"

	"github.com/gosure/gosure/internal/fs"
	"github.com/gosure/gosure/internal/sure"
	"github.com/gosure/gosure/internal/weave"
)

// WeaveStore keeps every snapshot as a delta in one weave file, so
// the history grows with the size of the changes rather than the size
// of the tree.
type WeaveStore struct {
	naming *weave.SimpleNaming
}

// NewWeaveStore addresses the weave <dir>/<base>.weave (plus ".gz"
// when compress is set).
func NewWeaveStore(dir, base string, compress bool, fsys fs.FS) *WeaveStore {
	return &WeaveStore{
		naming: weave.NewSimpleNaming(dir, base, "weave", compress, fsys),
	}
}

// withName copies tags, defaulting the snapshot name to the current
// time when the caller did not pick one.
func withName(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags)+1)
	for k, v := range tags {
		out[k] = v
	}
	if _, ok := out["name"]; !ok {
		out["name"] = time.Now().UTC().Format(time.RFC3339)
	}
	return out
}

func (s *WeaveStore) WriteNew(tree *sure.Tree, tags map[string]string) error {
	tags = withName(tags)
	lines := tree.Encode()

	if !s.naming.Exists() {
		nw, err := weave.Create(s.naming, tags)
		if err != nil {
			return fmt.Errorf("create weave: %w", err)
		}
		for _, line := range lines {
			if err := nw.WriteLine(line); err != nil {
				return fmt.Errorf("write weave: %w", err)
			}
		}
		if err := nw.Close(); err != nil {
			return fmt.Errorf("commit weave: %w", err)
		}
		return nil
	}

	base, err := weave.LastDelta(s.naming)
	if err != nil {
		return fmt.Errorf("read weave header: %w", err)
	}
	dw, err := weave.NewDelta(s.naming, tags, base)
	if err != nil {
		return fmt.Errorf("open delta: %w", err)
	}
	for _, line := range lines {
		if err := dw.WriteLine(line); err != nil {
			return fmt.Errorf("write delta: %w", err)
		}
	}
	if err := dw.Close(); err != nil {
		return fmt.Errorf("commit delta: %w", err)
	}
	return nil
}

func (s *WeaveStore) Load(v Version) (*sure.Tree, error) {
	serial, err := s.resolve(v)
	if err != nil {
		return nil, err
	}
	rd, err := weave.OpenRev(s.naming, serial)
	if err != nil {
		return nil, fmt.Errorf("open revision %d: %w", serial, err)
	}
	defer rd.Close()
	tree, err := sure.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("decode revision %d: %w", serial, err)
	}
	return tree, nil
}

func (s *WeaveStore) resolve(v Version) (int, error) {
	header, err := weave.ReadHeader(s.naming)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return 0, ErrNoSnapshot
		}
		return 0, err
	}
	switch v.Kind {
	case KindLatest:
		serial, err := header.Latest()
		if errors.Is(err, weave.ErrNoDeltas) {
			return 0, ErrNoSnapshot
		}
		return serial, err
	case KindPrior:
		serial, err := header.Prior()
		if errors.Is(err, weave.ErrNoDeltas) {
			return 0, ErrNoSnapshot
		}
		return serial, err
	case KindTagged:
		serial, ok := header.ByName(v.Tag)
		if !ok {
			return 0, fmt.Errorf("%w: no snapshot named %q", ErrNoSnapshot, v.Tag)
		}
		return serial, nil
	default:
		return 0, fmt.Errorf("unknown version kind %d", v.Kind)
	}
}

func (s *WeaveStore) Versions() ([]Revision, error) {
	header, err := weave.ReadHeader(s.naming)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	revs := make([]Revision, 0, len(header.Deltas))
	for _, d := range header.Deltas {
		revs = append(revs, Revision{Name: d.Name, Number: d.Number, Time: d.Time})
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].Number > revs[j].Number })
	return revs, nil
}
