package weave

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosure/gosure/internal/fs"
)

func testNaming(t *testing.T, compress bool) (*SimpleNaming, *fs.MemoryFS) {
	t.Helper()
	mem := fs.NewMemoryFS()
	return NewSimpleNaming("store", "sample", "weave", compress, mem), mem
}

func writeInitial(t *testing.T, naming Naming, name string, lines []string) {
	t.Helper()
	nw, err := Create(naming, map[string]string{"name": name})
	require.NoError(t, err)
	for _, line := range lines {
		require.NoError(t, nw.WriteLine(line))
	}
	require.NoError(t, nw.Close())
}

func writeDelta(t *testing.T, naming Naming, name string, base int, lines []string) int {
	t.Helper()
	dw, err := NewDelta(naming, map[string]string{"name": name}, base)
	require.NoError(t, err)
	for _, line := range lines {
		require.NoError(t, dw.WriteLine(line))
	}
	require.NoError(t, dw.Close())
	serial, err := LastDelta(naming)
	require.NoError(t, err)
	return serial
}

func TestCreateAndRender(t *testing.T) {
	naming, _ := testNaming(t, false)
	lines := []string{"alpha", "beta", "gamma"}
	writeInitial(t, naming, "first", lines)

	got, err := Render(naming, 1)
	require.NoError(t, err)
	assert.Equal(t, lines, got)

	header, err := ReadHeader(naming)
	require.NoError(t, err)
	require.Len(t, header.Deltas, 1)
	assert.Equal(t, "first", header.Deltas[0].Name)
	assert.Equal(t, 1, header.Deltas[0].Number)
}

func TestDeltaRoundTrip(t *testing.T) {
	naming, _ := testNaming(t, false)

	revs := [][]string{
		{"a", "b", "c", "d"},
		{"a", "x", "c", "d"},          // replace b
		{"a", "x", "c", "d", "e"},     // append
		{"zero", "a", "x", "c", "d", "e"}, // prepend
		{"zero", "x", "c", "e"},       // drop a and d
	}

	writeInitial(t, naming, "rev1", revs[0])
	base := 1
	for i, rev := range revs[1:] {
		base = writeDelta(t, naming, fmt.Sprintf("rev%d", i+2), base, rev)
	}

	// Every revision must still render exactly.
	for i, want := range revs {
		got, err := Render(naming, i+1)
		require.NoError(t, err, "revision %d", i+1)
		assert.Equal(t, want, got, "revision %d", i+1)
	}
}

func TestDeltaIdenticalContent(t *testing.T) {
	naming, _ := testNaming(t, false)
	lines := []string{"one", "two", "three"}
	writeInitial(t, naming, "first", lines)
	serial := writeDelta(t, naming, "second", 1, lines)
	require.Equal(t, 2, serial)

	for rev := 1; rev <= 2; rev++ {
		got, err := Render(naming, rev)
		require.NoError(t, err)
		assert.Equal(t, lines, got)
	}
}

func TestCompressedWeave(t *testing.T) {
	naming, mem := testNaming(t, true)
	writeInitial(t, naming, "first", []string{"hello", "world"})
	writeDelta(t, naming, "second", 1, []string{"hello", "there", "world"})

	got, err := Render(naming, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "there", "world"}, got)

	// The stored bytes must actually be gzip.
	raw, err := mem.ReadFile("store/sample.weave.gz")
	require.NoError(t, err)
	require.True(t, len(raw) >= 2)
	assert.Equal(t, byte(0x1f), raw[0])
	assert.Equal(t, byte(0x8b), raw[1])
}

func TestRotateKeepsBackup(t *testing.T) {
	naming, mem := testNaming(t, false)
	writeInitial(t, naming, "first", []string{"a"})
	writeDelta(t, naming, "second", 1, []string{"a", "b"})

	assert.True(t, mem.Exists("store/sample.weave"))
	assert.True(t, mem.Exists("store/sample.bak"))

	// The backup is the pre-delta weave: it renders revision 1 only.
	data, err := mem.ReadFile("store/sample.bak")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "b\n")
}

func TestHeaderSerials(t *testing.T) {
	h := Header{Version: 1}

	_, err := h.Add(map[string]string{"host": "x"})
	require.Error(t, err)

	s1, err := h.Add(map[string]string{"name": "one"})
	require.NoError(t, err)
	s2, err := h.Add(map[string]string{"name": "two", "host": "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, s1)
	assert.Equal(t, 2, s2)

	latest, err := h.Latest()
	require.NoError(t, err)
	assert.Equal(t, 2, latest)
	prior, err := h.Prior()
	require.NoError(t, err)
	assert.Equal(t, 1, prior)

	serial, ok := h.ByName("one")
	require.True(t, ok)
	assert.Equal(t, 1, serial)
	_, ok = h.ByName("missing")
	assert.False(t, ok)

	// The "name" tag lives in the Name field, not in Tags.
	assert.Equal(t, map[string]string{"host": "x"}, h.Deltas[1].Tags)
}

func TestHeaderPriorNeedsTwo(t *testing.T) {
	h := Header{Version: 1}
	_, err := h.Prior()
	assert.ErrorIs(t, err, ErrNoDeltas)
	_, err = h.Add(map[string]string{"name": "only"})
	require.NoError(t, err)
	_, err = h.Prior()
	assert.ErrorIs(t, err, ErrNoDeltas)
}

func parseAll(t *testing.T, text string, target int) ([]Record, error) {
	t.Helper()
	p, err := NewParserReader(strings.NewReader(text), target)
	if err != nil {
		return nil, err
	}
	var recs []Record
	for {
		rec, err := p.Next()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
}

const testHeader = "\x01t{\"version\":1,\"deltas\":[{\"name\":\"one\",\"number\":1,\"tags\":{},\"time\":\"2026-01-02T15:04:05Z\"}]}\n"

func TestParserKeepTracking(t *testing.T) {
	text := testHeader +
		"\x01I 1\n" +
		"kept\n" +
		"\x01D 2\n" +
		"gone in two\n" +
		"\x01E 2\n" +
		"\x01E 1\n" +
		"\x01I 2\n" +
		"new in two\n" +
		"\x01E 2\n"

	recs, err := parseAll(t, text, 1)
	require.NoError(t, err)
	var visible []string
	for _, rec := range recs {
		if rec.Kind == Content && rec.Keep {
			visible = append(visible, rec.Text)
		}
	}
	assert.Equal(t, []string{"kept", "gone in two"}, visible)

	recs, err = parseAll(t, text, 2)
	require.NoError(t, err)
	visible = nil
	for _, rec := range recs {
		if rec.Kind == Content && rec.Keep {
			visible = append(visible, rec.Text)
		}
	}
	assert.Equal(t, []string{"kept", "new in two"}, visible)
}

func TestParserFormatErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unmatched end", "\x01E 3\n"},
		{"bad serial", "\x01I x\n"},
		{"unterminated block", "\x01I 1\nline\n"},
		{"duplicate open", "\x01I 1\n\x01I 1\nline\n\x01E 1\n\x01E 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseAll(t, testHeader+tc.body, 1)
			var ferr *FormatError
			assert.ErrorAs(t, err, &ferr)
		})
	}
}

func TestParserSkipsShortControlLines(t *testing.T) {
	// Control lines under four bytes or with unknown ops are reserved
	// and must be ignored.
	text := testHeader +
		"\x01I 1\n" +
		"\x01Z\n" +
		"\x01Q 9\n" +
		"data\n" +
		"\x01E 1\n"
	recs, err := parseAll(t, text, 1)
	require.NoError(t, err)
	var visible []string
	for _, rec := range recs {
		if rec.Kind == Content && rec.Keep {
			visible = append(visible, rec.Text)
		}
	}
	assert.Equal(t, []string{"data"}, visible)
}

func TestParserMissingHeader(t *testing.T) {
	_, err := NewParserReader(strings.NewReader("not a weave\n"), 1)
	var ferr *FormatError
	assert.ErrorAs(t, err, &ferr)
}

func TestOpenRevUnknownSerial(t *testing.T) {
	naming, _ := testNaming(t, false)
	writeInitial(t, naming, "first", []string{"a"})
	_, err := OpenRev(naming, 7)
	require.Error(t, err)
}

func TestDeltaGrowthStaysIncremental(t *testing.T) {
	naming, mem := testNaming(t, false)

	// A large base revision followed by tiny edits: the weave must
	// grow by roughly the edit size, not the tree size.
	base := make([]string, 0, 2000)
	for i := 0; i < 2000; i++ {
		base = append(base, fmt.Sprintf("entry-%04d payload payload payload", i))
	}
	writeInitial(t, naming, "rev1", base)

	size1 := len(mustRead(t, mem, "store/sample.weave"))

	serial := 1
	for i := 0; i < 5; i++ {
		next := append([]string(nil), base...)
		next[100+i] = fmt.Sprintf("entry-%04d changed", 100+i)
		serial = writeDelta(t, naming, fmt.Sprintf("rev%d", i+2), serial, next)
		base = next
	}

	size6 := len(mustRead(t, mem, "store/sample.weave"))
	// Five single-line edits over a ~2000 line file must cost far
	// less than five full copies.
	assert.Less(t, size6, size1*2)

	got, err := Render(naming, serial)
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func mustRead(t *testing.T, mem *fs.MemoryFS, path string) []byte {
	t.Helper()
	data, err := mem.ReadFile(path)
	require.NoError(t, err)
	return data
}
