package weave

import (
	"bufio"
	"io"
	"strconv"
)

// RecordKind distinguishes the records a Parser yields.
type RecordKind int

const (
	// Content is one line of stored data.
	Content RecordKind = iota
	// Insert begins a block of lines introduced by a delta.
	Insert
	// Delete begins a block of lines removed by a delta.
	Delete
	// End closes the innermost block opened by the same serial.
	End
)

// Record is one parsed weave record. For Content records, Keep reports
// whether the line is visible in the parser's target revision.
type Record struct {
	Kind   RecordKind
	Serial int
	Text   string
	Keep   bool
}

type stateMode int

const (
	modeKeep stateMode = iota
	modeSkip
	modeNext
)

type deltaState struct {
	serial int
	mode   stateMode
}

// Parser is a pull reader over a weave stream aimed at one target
// revision. Each call to Next consumes exactly one record; no background
// work is pending between calls, and the record order matches the
// positional order of the file. The sequence is finite and forward-only.
type Parser struct {
	scan   *bufio.Scanner
	closer io.Closer
	header Header
	target int

	// Open blocks, kept sorted with the largest serial first.
	states  []deltaState
	keeping bool
	line    int
}

// NewParser opens the weave's main file and positions a parser after the
// header, aimed at the given target revision.
func NewParser(naming Naming, target int) (*Parser, error) {
	rc, err := naming.OpenMain()
	if err != nil {
		return nil, err
	}
	p, err := NewParserReader(rc, target)
	if err != nil {
		rc.Close()
		return nil, err
	}
	p.closer = rc
	return p, nil
}

// NewParserReader reads a weave stream from r. The header is consumed
// immediately; the remaining records are pulled through Next.
func NewParserReader(r io.Reader, target int) (*Parser, error) {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scan.Scan() {
		if err := scan.Err(); err != nil {
			return nil, err
		}
		return nil, formatErrf(0, "weave file appears empty")
	}
	header, err := decodeHeader(scan.Text())
	if err != nil {
		return nil, err
	}

	return &Parser{
		scan:   scan,
		header: header,
		target: target,
		line:   1,
	}, nil
}

// Header returns the delta table read from the first line.
func (p *Parser) Header() Header { return p.header }

// Close releases the underlying file, if the parser owns one.
func (p *Parser) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// Next returns the next record, or io.EOF after the last one. A weave
// whose blocks are unbalanced or whose serials are malformed yields a
// FormatError, never a silently truncated sequence.
func (p *Parser) Next() (Record, error) {
	for {
		if !p.scan.Scan() {
			if err := p.scan.Err(); err != nil {
				return Record{}, err
			}
			if len(p.states) != 0 {
				return Record{}, formatErrf(p.line, "unterminated block for delta %d", p.states[0].serial)
			}
			return Record{}, io.EOF
		}
		p.line++
		line := p.scan.Text()

		if len(line) == 0 || line[0] != '\x01' {
			return Record{Kind: Content, Text: line, Keep: p.keeping}, nil
		}

		// Control lines that are too short, or whose operation is
		// unknown, are skipped for forward compatibility.
		if len(line) < 4 {
			continue
		}
		op := line[1]
		if op != 'I' && op != 'D' && op != 'E' {
			continue
		}

		serial, err := strconv.Atoi(line[3:])
		if err != nil || serial <= 0 {
			return Record{}, formatErrf(p.line, "bad delta serial %q", line[3:])
		}

		switch op {
		case 'E':
			if !p.pop(serial) {
				return Record{}, formatErrf(p.line, "end of block for delta %d with no open block", serial)
			}
			p.updateKeep()
			return Record{Kind: End, Serial: serial}, nil

		case 'I':
			// Inserted content is present from revision serial onward.
			mode := modeSkip
			if serial <= p.target {
				mode = modeKeep
			}
			if err := p.push(serial, mode); err != nil {
				return Record{}, err
			}
			p.updateKeep()
			return Record{Kind: Insert, Serial: serial}, nil

		default: // 'D'
			// Deleted content is absent from revision serial onward;
			// a future deletion does not affect the target revision.
			mode := modeNext
			if serial <= p.target {
				mode = modeSkip
			}
			if err := p.push(serial, mode); err != nil {
				return Record{}, err
			}
			p.updateKeep()
			return Record{Kind: Delete, Serial: serial}, nil
		}
	}
}

func (p *Parser) push(serial int, mode stateMode) error {
	pos := 0
	for pos < len(p.states) && p.states[pos].serial > serial {
		pos++
	}
	if pos < len(p.states) && p.states[pos].serial == serial {
		return formatErrf(p.line, "duplicate open block for delta %d", serial)
	}
	p.states = append(p.states, deltaState{})
	copy(p.states[pos+1:], p.states[pos:])
	p.states[pos] = deltaState{serial: serial, mode: mode}
	return nil
}

func (p *Parser) pop(serial int) bool {
	for i, st := range p.states {
		if st.serial == serial {
			p.states = append(p.states[:i], p.states[i+1:]...)
			return true
		}
	}
	return false
}

// updateKeep derives line visibility from the open blocks: the newest
// block with a definite opinion wins.
func (p *Parser) updateKeep() {
	for _, st := range p.states {
		switch st.mode {
		case modeKeep:
			p.keeping = true
			return
		case modeSkip:
			p.keeping = false
			return
		}
	}
	p.keeping = false
}

// RevReader pulls the visible content lines of a single revision, one
// line per call.
type RevReader struct {
	p *Parser
}

// OpenRev opens a pull reader over the given revision. The serial must
// exist in the header.
func OpenRev(naming Naming, serial int) (*RevReader, error) {
	p, err := NewParser(naming, serial)
	if err != nil {
		return nil, err
	}
	if !p.header.Has(serial) {
		p.Close()
		return nil, formatErrf(0, "unknown delta %d", serial)
	}
	return &RevReader{p: p}, nil
}

// Header returns the weave's delta table.
func (r *RevReader) Header() Header { return r.p.Header() }

// ReadLine returns the next visible line, or io.EOF.
func (r *RevReader) ReadLine() (string, error) {
	for {
		rec, err := r.p.Next()
		if err != nil {
			return "", err
		}
		if rec.Kind == Content && rec.Keep {
			return rec.Text, nil
		}
	}
}

func (r *RevReader) Close() error { return r.p.Close() }

// Render materializes the full line sequence of one revision.
func Render(naming Naming, serial int) ([]string, error) {
	rd, err := OpenRev(naming, serial)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	var lines []string
	for {
		line, err := rd.ReadLine()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
}

// ReadHeader reads just the delta table of a weave file.
func ReadHeader(naming Naming) (Header, error) {
	p, err := NewParser(naming, 1)
	if err != nil {
		return Header{}, err
	}
	defer p.Close()
	return p.Header(), nil
}

// LastDelta returns the serial of the most recent delta.
func LastDelta(naming Naming) (int, error) {
	header, err := ReadHeader(naming)
	if err != nil {
		return 0, err
	}
	return header.Latest()
}
