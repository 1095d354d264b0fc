package weave

import (
	"errors"
	"fmt"
)

// FormatError reports a structurally invalid weave stream: unbalanced
// control markers, undefined serial references, or a broken header. It is
// always fatal to the operation in progress and never silently repaired.
type FormatError struct {
	Line int // 1-based input line, 0 when not tied to a line
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("weave: line %d: %s", e.Line, e.Msg)
	}
	return "weave: " + e.Msg
}

func formatErrf(line int, format string, args ...any) error {
	return &FormatError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// ErrNoDeltas indicates a weave header that records no revisions.
var ErrNoDeltas = errors.New("weave: no deltas in weave file")
