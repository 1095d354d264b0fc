package sure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeRoundTrip(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"plain.txt", "plain.txt"},
		{"with space", "with=20space"},
		{"equals=sign", "equals=3dsign"},
		{"nl\nname", "nl=0aname"},
		{"caf\xc3\xa9", "caf=c3=a9"},
		{"\x00", "=00"},
	}
	for _, tc := range cases {
		got := Escape([]byte(tc.raw))
		assert.Equal(t, tc.want, got)
		back, err := Unescape(got)
		require.NoError(t, err)
		assert.Equal(t, tc.raw, string(back))
	}
}

func TestUnescapeRejectsBadInput(t *testing.T) {
	for _, text := range []string{"=", "=2", "=zz", "a=4"} {
		_, err := Unescape(text)
		assert.Error(t, err, "input %q", text)
	}
}

func sampleTree() *Tree {
	return &Tree{
		Name: "__root__",
		Atts: map[string]string{"kind": KindDir, "uid": "0", "gid": "0", "perm": "493"},
		Children: []*Tree{
			{
				Name: "docs",
				Atts: map[string]string{"kind": KindDir, "uid": "0", "gid": "0", "perm": "493"},
				Files: []*File{
					{Name: "guide=20v2.md", Atts: map[string]string{
						"kind": KindFile, "uid": "0", "gid": "0", "perm": "420",
						"ino": "42", "size": "100", "mtime": "1700000000", "ctime": "1700000000",
						"sha1": "da39a3ee5e6b4b0d3255bfef95601890afd80709",
					}},
				},
			},
		},
		Files: []*File{
			{Name: "link", Atts: map[string]string{
				"kind": KindLink, "uid": "0", "gid": "0", "perm": "511", "targ": "docs",
			}},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tree := sampleTree()
	lines := tree.Encode()

	require.Equal(t, Magic, lines[0])
	require.Equal(t, "-----", lines[1])

	back, err := DecodeLines(lines)
	require.NoError(t, err)
	assert.Equal(t, tree, back)
}

func TestEncodeSortsAttributeKeys(t *testing.T) {
	tree := &Tree{Name: "__root__", Atts: map[string]string{
		"uid": "0", "kind": KindDir, "gid": "0",
	}}
	lines := tree.Encode()
	assert.Equal(t, "d__root__ [gid 0 kind dir uid 0 ]", lines[2])
}

func TestEncodeStructure(t *testing.T) {
	lines := sampleTree().Encode()
	// dir, nested dir with its own file block, then the root's files.
	want := []string{
		"d__root__",
		"ddocs",
		"-",
		"fguide=20v2.md",
		"u",
		"-",
		"flink",
		"u",
	}
	require.Len(t, lines, 2+len(want))
	for i, prefix := range want {
		assert.True(t, strings.HasPrefix(lines[2+i], prefix),
			"line %d: %q does not start with %q", i, lines[2+i], prefix)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := DecodeLines([]string{"asure-1.0", "-----", "droot []", "-", "u"})
	assert.Error(t, err)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	lines := sampleTree().Encode()
	for cut := 2; cut < len(lines); cut++ {
		_, err := DecodeLines(lines[:cut])
		assert.Error(t, err, "truncated after %d lines", cut)
	}
}

func TestDecodeRejectsMissingMarkers(t *testing.T) {
	_, err := DecodeLines([]string{Magic, "-----", "droot []", "u"})
	assert.Error(t, err)
	_, err = DecodeLines([]string{Magic, "-----", "droot []", "-", "x"})
	assert.Error(t, err)
}

func TestFormatAtts(t *testing.T) {
	got := FormatAtts(map[string]string{"uid": "0", "kind": "file", "size": "9"})
	assert.Equal(t, "kind=file size=9 uid=0", got)
}

func TestAttInt(t *testing.T) {
	atts := map[string]string{"size": "512", "ctime": "-3600", "perm": "rw"}
	assert.Equal(t, int64(512), AttInt(atts, "size"))
	assert.Equal(t, int64(-3600), AttInt(atts, "ctime"))
	assert.Equal(t, int64(0), AttInt(atts, "perm"))
	assert.Equal(t, int64(0), AttInt(atts, "missing"))
}
