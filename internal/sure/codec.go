package sure

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const (
	// Magic is the first line of every serialized snapshot.
	Magic     = "asure-2.0"
	separator = "-----"
)

// LineReader is the minimal pull source the decoder consumes; the weave
// revision reader satisfies it. ReadLine returns io.EOF at the end.
type LineReader interface {
	ReadLine() (string, error)
}

// Encode serializes the tree into its line-oriented form, magic lines
// included.
func (t *Tree) Encode() []string {
	lines := []string{Magic, separator}
	t.appendLines(&lines)
	return lines
}

func (t *Tree) appendLines(dst *[]string) {
	*dst = append(*dst, entityLine('d', t.Name, t.Atts))
	for _, ch := range t.Children {
		ch.appendLines(dst)
	}
	*dst = append(*dst, "-")
	for _, f := range t.Files {
		*dst = append(*dst, entityLine('f', f.Name, f.Atts))
	}
	*dst = append(*dst, "u")
}

// entityLine renders "<kind><name> [k1 v1 k2 v2 ]" with keys sorted.
func entityLine(kind byte, name string, atts map[string]string) string {
	var b strings.Builder
	b.WriteByte(kind)
	b.WriteString(name)
	b.WriteString(" [")
	keys := make([]string, 0, len(atts))
	for k := range atts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(' ')
		b.WriteString(atts[k])
		b.WriteByte(' ')
	}
	b.WriteByte(']')
	return b.String()
}

// FormatAtts renders attributes as sorted k=v pairs for display.
func FormatAtts(atts map[string]string) string {
	keys := make([]string, 0, len(atts))
	for k := range atts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(atts[k])
	}
	return b.String()
}

// Decode reads one serialized snapshot from a line source.
func Decode(r LineReader) (*Tree, error) {
	if err := fixed(r, Magic); err != nil {
		return nil, err
	}
	if err := fixed(r, separator); err != nil {
		return nil, err
	}
	first, err := readLine(r)
	if err != nil {
		return nil, err
	}
	return decodeTree(first, r)
}

// DecodeLines decodes a snapshot held as a line slice.
func DecodeLines(lines []string) (*Tree, error) {
	return Decode(&sliceReader{lines: lines})
}

type sliceReader struct {
	lines []string
	pos   int
}

func (s *sliceReader) ReadLine() (string, error) {
	if s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

func decodeTree(first string, r LineReader) (*Tree, error) {
	if len(first) == 0 || first[0] != 'd' {
		return nil, fmt.Errorf("surefile: expected directory line, got %q", first)
	}
	name, atts, err := decodeEntity(first[1:])
	if err != nil {
		return nil, err
	}
	t := &Tree{Name: name, Atts: atts}

	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	for len(line) > 0 && line[0] == 'd' {
		child, err := decodeTree(line, r)
		if err != nil {
			return nil, err
		}
		t.Children = append(t.Children, child)
		if line, err = readLine(r); err != nil {
			return nil, err
		}
	}

	if line != "-" {
		return nil, fmt.Errorf("surefile: missing %q marker, got %q", "-", line)
	}

	if line, err = readLine(r); err != nil {
		return nil, err
	}
	for len(line) > 0 && line[0] == 'f' {
		fname, fatts, err := decodeEntity(line[1:])
		if err != nil {
			return nil, err
		}
		t.Files = append(t.Files, &File{Name: fname, Atts: fatts})
		if line, err = readLine(r); err != nil {
			return nil, err
		}
	}

	if line != "u" {
		return nil, fmt.Errorf("surefile: missing %q marker, got %q", "u", line)
	}
	return t, nil
}

func decodeEntity(text string) (string, map[string]string, error) {
	name, rest, ok := strings.Cut(text, " ")
	if !ok || len(rest) == 0 || rest[0] != '[' {
		return "", nil, fmt.Errorf("surefile: malformed entity %q", text)
	}
	rest = rest[1:]

	atts := make(map[string]string)
	for len(rest) > 0 && rest[0] != ']' {
		key, r2, ok := strings.Cut(rest, " ")
		if !ok {
			return "", nil, fmt.Errorf("surefile: malformed attributes in %q", text)
		}
		value, r3, ok := strings.Cut(r2, " ")
		if !ok {
			return "", nil, fmt.Errorf("surefile: malformed attributes in %q", text)
		}
		atts[key] = value
		rest = r3
	}
	if len(rest) == 0 {
		return "", nil, fmt.Errorf("surefile: unterminated attributes in %q", text)
	}
	return name, atts, nil
}

func readLine(r LineReader) (string, error) {
	line, err := r.ReadLine()
	if err == io.EOF {
		return "", fmt.Errorf("surefile: truncated snapshot")
	}
	if err != nil {
		return "", err
	}
	return line, nil
}

func fixed(r LineReader, want string) error {
	line, err := readLine(r)
	if err != nil {
		return err
	}
	if line != want {
		return fmt.Errorf("surefile: unexpected line %q, want %q", line, want)
	}
	return nil
}

// AttInt reads a decimal attribute, or 0 when absent or malformed.
func AttInt(atts map[string]string, key string) int64 {
	v, ok := atts[key]
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
