package hashline

import (
	"fmt"
	"strings"
)

// Result is the outcome of applying an ordered edit batch.
type Result struct {
	Content        string
	MinChangedLine int // smallest 1-based line number touched
	NoOps          []string
	Warnings       []string
}

// Apply applies edits, which must already be in the order Validate
// returns, to content. It does not re-dedupe or re-sort: callers always go
// through Validate first, and applying out of order would invalidate the
// bottom-up splice-offset guarantee the ordering provides.
func Apply(content string, edits []Edit) (Result, error) {
	lines := splitLines(content)

	var res Result
	minChanged := -1
	updateMin := func(l int) {
		if minChanged == -1 || l < minChanged {
			minChanged = l
		}
	}

	for _, e := range edits {
		switch e.Kind {
		case KindReplace:
			start := int(e.Pos.Line) - 1
			end := start
			if e.End != nil {
				end = int(e.End.Line) - 1
			}
			if start < 0 || end >= len(lines) || start > end {
				return Result{}, fmt.Errorf("hashline: replace range [%d,%d] out of bounds after prior edits", start+1, end+1)
			}
			spliced := lines[start : end+1]
			if equalStrings(spliced, e.Lines) {
				res.NoOps = append(res.NoOps, fmt.Sprintf("replace at line %d: no changes", e.Pos.Line))
				res.Warnings = append(res.Warnings, fmt.Sprintf("no-op replace skipped at line %d", e.Pos.Line))
				continue
			}
			lines = spliceReplace(lines, start, end, e.Lines)
			updateMin(int(e.Pos.Line))

		case KindAppend:
			if e.Pos != nil {
				idx := int(e.Pos.Line) // insert after this line: 0-based idx == Line
				lines = spliceInsert(lines, idx, e.Lines)
				updateMin(int(e.Pos.Line) + 1)
			} else {
				switch {
				case len(lines) == 1 && lines[0] == "":
					lines = append([]string{}, e.Lines...)
					updateMin(1)
				case len(lines) > 0 && lines[len(lines)-1] == "":
					idx := len(lines) - 1
					lines = spliceInsert(lines, idx, e.Lines)
					updateMin(idx + 1)
				default:
					updateMin(len(lines) + 1)
					lines = append(lines, e.Lines...)
				}
			}

		case KindPrepend:
			if e.Pos != nil {
				idx := int(e.Pos.Line) - 1
				lines = spliceInsert(lines, idx, e.Lines)
				updateMin(int(e.Pos.Line))
			} else {
				if len(lines) == 1 && lines[0] == "" {
					lines = append([]string{}, e.Lines...)
				} else {
					lines = spliceInsert(lines, 0, e.Lines)
				}
				updateMin(1)
			}
		}
	}

	if minChanged == -1 {
		return Result{}, &AllNoOpError{NoOps: res.NoOps}
	}

	res.Content = strings.Join(lines, "\n")
	res.MinChangedLine = minChanged
	return res, nil
}

func spliceInsert(lines []string, idx int, ins []string) []string {
	out := make([]string, 0, len(lines)+len(ins))
	out = append(out, lines[:idx]...)
	out = append(out, ins...)
	out = append(out, lines[idx:]...)
	return out
}

func spliceReplace(lines []string, start, end int, newLines []string) []string {
	out := make([]string, 0, len(lines)-(end-start+1)+len(newLines))
	out = append(out, lines[:start]...)
	out = append(out, newLines...)
	out = append(out, lines[end+1:]...)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
