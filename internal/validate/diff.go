package validate

import (
	"bytes"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/go-diff/diff"
)

// diffContext is the number of unchanged lines shown around a change.
const diffContext = 3

// Diff renders the change from before to after as a unified diff of path.
// Changes separated by more than twice diffContext unchanged lines get
// their own hunk. It returns nil when the contents are equal.
func Diff(path string, before, after []byte) ([]byte, error) {
	if bytes.Equal(before, after) {
		return nil, nil
	}
	a, b := splitLines(before), splitLines(after)

	m := difflib.NewMatcher(a, b)
	var hunks []*diff.Hunk
	for _, group := range m.GetGroupedOpCodes(diffContext) {
		hunks = append(hunks, hunk(a, b, group))
	}
	return diff.PrintFileDiff(&diff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Hunks:    hunks,
	})
}

func hunk(a, b []string, group []difflib.OpCode) *diff.Hunk {
	var body bytes.Buffer
	for _, op := range group {
		switch op.Tag {
		case 'e':
			writeLines(&body, ' ', a[op.I1:op.I2])
		case 'd':
			writeLines(&body, '-', a[op.I1:op.I2])
		case 'i':
			writeLines(&body, '+', b[op.J1:op.J2])
		case 'r':
			writeLines(&body, '-', a[op.I1:op.I2])
			writeLines(&body, '+', b[op.J1:op.J2])
		}
	}

	first, last := group[0], group[len(group)-1]
	return &diff.Hunk{
		OrigStartLine: startLine(first.I1, last.I2),
		OrigLines:     int32(last.I2 - first.I1),
		NewStartLine:  startLine(first.J1, last.J2),
		NewLines:      int32(last.J2 - first.J1),
		Body:          body.Bytes(),
	}
}

// startLine is the 1-based start of a hunk range. An empty range names the
// line before it.
func startLine(from, to int) int32 {
	if from == to {
		return int32(from)
	}
	return int32(from + 1)
}

// splitLines splits s after each newline. A final line without a newline
// is kept as is.
func splitLines(s []byte) []string {
	var lines []string
	for len(s) > 0 {
		i := bytes.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, string(s))
			break
		}
		lines = append(lines, string(s[:i+1]))
		s = s[i+1:]
	}
	return lines
}

func writeLines(buf *bytes.Buffer, prefix byte, lines []string) {
	for _, l := range lines {
		buf.WriteByte(prefix)
		buf.WriteString(l)
		if len(l) == 0 || l[len(l)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
}
