package weave

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// DeltaWriter adds a new delta to an existing weave. The new revision's
// lines are added with WriteLine; Close diffs them against the base
// revision and rewrites the weave with the changes captured as insert
// and delete blocks for the new serial. Unchanged lines are not
// duplicated, so the file grows with the size of the change, not the
// size of the revision.
type DeltaWriter struct {
	naming Naming
	tags   map[string]string
	base   int
	lines  []string
	closed bool
}

// NewDelta prepares a delta against the given base revision.
func NewDelta(naming Naming, tags map[string]string, base int) (*DeltaWriter, error) {
	header, err := ReadHeader(naming)
	if err != nil {
		return nil, err
	}
	if !header.Has(base) {
		return nil, formatErrf(0, "unknown base delta %d", base)
	}
	if _, ok := tags["name"]; !ok {
		return nil, fmt.Errorf("weave: no \"name\" tag given")
	}
	return &DeltaWriter{naming: naming, tags: tags, base: base}, nil
}

// WriteLine appends one content line of the new revision.
func (d *DeltaWriter) WriteLine(text string) error {
	if d.closed {
		return errors.New("weave: write to closed DeltaWriter")
	}
	d.lines = append(d.lines, text)
	return nil
}

// Close computes the edit script, rewrites the weave into a temp file
// and rotates it into place. On any error the existing weave file is
// left untouched.
func (d *DeltaWriter) Close() error {
	if d.closed {
		return errors.New("weave: DeltaWriter already closed")
	}
	d.closed = true

	baseLines, err := Render(d.naming, d.base)
	if err != nil {
		return err
	}
	hunks := diffLines(baseLines, d.lines)

	p, err := NewParser(d.naming, d.base)
	if err != nil {
		return err
	}
	defer p.Close()

	header := p.Header()
	serial, err := header.Add(d.tags)
	if err != nil {
		return err
	}

	tempName, file, err := d.naming.TempFile(d.naming.Compressed())
	if err != nil {
		return err
	}
	abort := func(err error) error {
		file.Close()
		d.naming.Remove(tempName)
		return err
	}

	w := bufio.NewWriter(file)
	headerLine, err := header.encode()
	if err != nil {
		return abort(err)
	}
	if _, err := fmt.Fprintln(w, headerLine); err != nil {
		return abort(err)
	}

	pump := &deltaPump{p: p, w: w}
	for _, h := range hunks {
		if h.cmd == 'd' || h.cmd == 'c' {
			// Wrap old lines oldLo..oldHi in a delete block.
			if err := pump.copyTo(h.oldLo); err != nil {
				return abort(err)
			}
			if err := pump.control('D', serial); err != nil {
				return abort(err)
			}
			if err := pump.copyTo(h.oldHi + 1); err != nil {
				return abort(err)
			}
			if err := pump.control('E', serial); err != nil {
				return abort(err)
			}
		} else {
			// Position just past the old line the insert follows.
			if err := pump.copyTo(h.oldHi + 1); err != nil {
				return abort(err)
			}
		}

		if h.cmd == 'a' || h.cmd == 'c' {
			if err := pump.control('I', serial); err != nil {
				return abort(err)
			}
			for i := h.newLo; i <= h.newHi; i++ {
				if _, err := fmt.Fprintln(w, d.lines[i-1]); err != nil {
					return abort(err)
				}
			}
			if err := pump.control('E', serial); err != nil {
				return abort(err)
			}
		}
	}
	if err := pump.copyTo(0); err != nil {
		return abort(err)
	}

	if err := w.Flush(); err != nil {
		return abort(err)
	}
	if err := file.Close(); err != nil {
		d.naming.Remove(tempName)
		return err
	}
	return d.naming.Rotate(tempName)
}

// deltaPump copies records from the old weave to the new one while
// counting content lines visible in the base revision, so new control
// blocks can be spliced at exact line positions.
type deltaPump struct {
	p       *Parser
	w       *bufio.Writer
	pending *Record
	kept    int
}

// copyTo pumps records through until visible content line lineno has
// been read; that line is held pending, unwritten, so a control record
// can be emitted before it. lineno 0 pumps to the end of input. Running
// out of input early is not an error: the pending position is simply the
// end of the revision.
func (dp *deltaPump) copyTo(lineno int) error {
	if dp.pending != nil {
		rec := *dp.pending
		dp.pending = nil
		if err := dp.emit(rec); err != nil {
			return err
		}
	}
	for {
		rec, err := dp.p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if rec.Kind == Content && rec.Keep {
			dp.kept++
			if dp.kept == lineno {
				dp.pending = &rec
				return nil
			}
		}
		if err := dp.emit(rec); err != nil {
			return err
		}
	}
}

func (dp *deltaPump) emit(rec Record) error {
	switch rec.Kind {
	case Content:
		_, err := fmt.Fprintln(dp.w, rec.Text)
		return err
	case Insert:
		return dp.control('I', rec.Serial)
	case Delete:
		return dp.control('D', rec.Serial)
	default:
		return dp.control('E', rec.Serial)
	}
}

func (dp *deltaPump) control(op byte, serial int) error {
	_, err := fmt.Fprintf(dp.w, "\x01%c %d\n", op, serial)
	return err
}
