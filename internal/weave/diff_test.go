package weave

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// applyHunks replays an ed-style hunk script over a, as a check that
// the diff is a correct edit script, independent of the weave writer.
func applyHunks(a, b []string, hunks []hunk) []string {
	var out []string
	next := 1
	for _, h := range hunks {
		switch h.cmd {
		case 'a':
			for next <= h.oldLo {
				out = append(out, a[next-1])
				next++
			}
			out = append(out, b[h.newLo-1:h.newHi]...)
		case 'd':
			for next < h.oldLo {
				out = append(out, a[next-1])
				next++
			}
			next = h.oldHi + 1
		case 'c':
			for next < h.oldLo {
				out = append(out, a[next-1])
				next++
			}
			next = h.oldHi + 1
			out = append(out, b[h.newLo-1:h.newHi]...)
		}
	}
	for next <= len(a) {
		out = append(out, a[next-1])
		next++
	}
	return out
}

func TestDiffLinesReconstructs(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
	}{
		{"equal", []string{"a", "b"}, []string{"a", "b"}},
		{"replace middle", []string{"a", "b", "c"}, []string{"a", "x", "c"}},
		{"append", []string{"a"}, []string{"a", "b"}},
		{"prepend", []string{"b"}, []string{"a", "b"}},
		{"delete end", []string{"a", "b"}, []string{"a"}},
		{"delete all", []string{"a", "b"}, nil},
		{"from empty", nil, []string{"a", "b"}},
		{"both empty", nil, nil},
		{"disjoint", []string{"a", "b"}, []string{"x", "y", "z"}},
		{"interleaved", []string{"a", "b", "c", "d", "e"}, []string{"a", "x", "c", "y", "e"}},
		{"duplicate lines", []string{"a", "a", "b", "a"}, []string{"a", "b", "a", "a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hunks := diffLines(tc.a, tc.b)
			got := applyHunks(tc.a, tc.b, hunks)
			assert.Equal(t, tc.b, got)
		})
	}
}

func TestDiffLinesEqualIsEmpty(t *testing.T) {
	assert.Empty(t, diffLines([]string{"a", "b", "c"}, []string{"a", "b", "c"}))
}

func TestDiffLinesSingleEditIsSmall(t *testing.T) {
	a := make([]string, 500)
	b := make([]string, 500)
	for i := range a {
		a[i] = fmt.Sprintf("line %d", i)
		b[i] = a[i]
	}
	b[250] = "changed"

	hunks := diffLines(a, b)
	require.Len(t, hunks, 1)
	assert.Equal(t, byte('c'), hunks[0].cmd)
	assert.Equal(t, 251, hunks[0].oldLo)
	assert.Equal(t, 251, hunks[0].oldHi)
}

func TestDiffLinesOverBudgetFallsBack(t *testing.T) {
	// Two sequences with nothing in common larger than the search
	// budget must still produce a valid edit script.
	n := maxDiffCost + 10
	a := make([]string, n)
	b := make([]string, n)
	for i := range a {
		a[i] = fmt.Sprintf("old %d", i)
		b[i] = fmt.Sprintf("new %d", i)
	}
	hunks := diffLines(a, b)
	assert.Equal(t, b, applyHunks(a, b, hunks))
}
