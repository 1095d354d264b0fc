package weave

// Line diffing for delta computation. The edit script is expressed as
// hunks over 1-based inclusive line ranges in the style of classic diff
// append/change/delete commands, which is exactly the shape the delta
// writer needs to interleave new control blocks while pumping the old
// weave through.

// maxDiffCost bounds the Myers search. Beyond this many edits the two
// revisions share almost nothing, and a whole-range change hunk costs
// about the same space as a minimal script would.
const maxDiffCost = 2048

type hunk struct {
	cmd byte // 'a', 'c' or 'd'
	// Old-side range. For 'a' both bounds name the old line the
	// insertion follows, which may be 0 for a prepend.
	oldLo, oldHi int
	// New-side range; unused for 'd'.
	newLo, newHi int
}

// diffLines computes an edit script turning a into b.
func diffLines(a, b []string) []hunk {
	// Trim the common prefix and suffix; tree snapshots usually agree
	// on almost everything.
	pre := 0
	for pre < len(a) && pre < len(b) && a[pre] == b[pre] {
		pre++
	}
	suf := 0
	for suf < len(a)-pre && suf < len(b)-pre && a[len(a)-1-suf] == b[len(b)-1-suf] {
		suf++
	}

	ca := a[pre : len(a)-suf]
	cb := b[pre : len(b)-suf]

	switch {
	case len(ca) == 0 && len(cb) == 0:
		return nil
	case len(ca) == 0:
		return []hunk{{cmd: 'a', oldLo: pre, oldHi: pre, newLo: pre + 1, newHi: pre + len(cb)}}
	case len(cb) == 0:
		return []hunk{{cmd: 'd', oldLo: pre + 1, oldHi: pre + len(ca)}}
	}

	ops := myersOps(ca, cb)
	if ops == nil {
		// Search budget exceeded; replace the whole core.
		return []hunk{{cmd: 'c', oldLo: pre + 1, oldHi: pre + len(ca), newLo: pre + 1, newHi: pre + len(cb)}}
	}
	return buildHunks(ops, pre)
}

type editOp byte

const (
	opEq  editOp = '='
	opDel editOp = '-'
	opIns editOp = '+'
)

// buildHunks folds a linear edit op sequence into hunks. off is the
// number of trimmed common-prefix lines.
func buildHunks(ops []editOp, off int) []hunk {
	var hunks []hunk
	oldPos, newPos := off, off

	for i := 0; i < len(ops); {
		if ops[i] == opEq {
			oldPos++
			newPos++
			i++
			continue
		}

		delLo := oldPos + 1
		insLo := newPos + 1
		dels, inss := 0, 0
		for i < len(ops) && ops[i] != opEq {
			if ops[i] == opDel {
				dels++
				oldPos++
			} else {
				inss++
				newPos++
			}
			i++
		}

		switch {
		case dels > 0 && inss > 0:
			hunks = append(hunks, hunk{cmd: 'c', oldLo: delLo, oldHi: delLo + dels - 1, newLo: insLo, newHi: insLo + inss - 1})
		case dels > 0:
			hunks = append(hunks, hunk{cmd: 'd', oldLo: delLo, oldHi: delLo + dels - 1})
		default:
			hunks = append(hunks, hunk{cmd: 'a', oldLo: delLo - 1, oldHi: delLo - 1, newLo: insLo, newHi: insLo + inss - 1})
		}
	}
	return hunks
}

// myersOps runs the O(ND) greedy diff and backtracks into a forward edit
// op sequence. Returns nil when the edit distance exceeds maxDiffCost.
func myersOps(a, b []string) []editOp {
	n, m := len(a), len(b)
	limit := n + m
	if limit > maxDiffCost {
		limit = maxDiffCost
	}

	off := limit
	v := make([]int, 2*limit+2)
	var trace [][]int

	found := -1
search:
	for d := 0; d <= limit; d++ {
		// Snapshot the frontier before this step, for backtracking.
		snap := make([]int, 2*d+1)
		copy(snap, v[off-d:off+d+1])
		trace = append(trace, snap)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[off+k-1] < v[off+k+1]) {
				x = v[off+k+1]
			} else {
				x = v[off+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[off+k] = x
			if x >= n && y >= m {
				found = d
				break search
			}
		}
	}
	if found < 0 {
		return nil
	}

	ops := make([]editOp, 0, n+m)
	x, y := n, m
	for d := found; d > 0; d-- {
		snap := trace[d]
		at := func(k int) int { return snap[d+k] }

		k := x - y
		var prevK int
		if k == -d || (k != d && at(k-1) < at(k+1)) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := at(prevK)
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			ops = append(ops, opEq)
			x--
			y--
		}
		if x == prevX {
			ops = append(ops, opIns)
		} else {
			ops = append(ops, opDel)
		}
		x, y = prevX, prevY
	}
	for x > 0 {
		ops = append(ops, opEq)
		x--
	}

	// Reverse into forward order.
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
	return ops
}
