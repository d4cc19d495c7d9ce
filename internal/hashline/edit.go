package hashline

import (
	"fmt"
	"sort"
	"strings"
)

// Kind distinguishes the three edit shapes a hashline batch may contain.
type Kind string

const (
	KindReplace Kind = "replace"
	KindAppend  Kind = "append"
	KindPrepend Kind = "prepend"
)

// Edit is one entry of a hashline edit batch. Pos is required for Replace;
// optional for Append/Prepend (anchor-less insertion at end/start of
// file). End is only meaningful for Replace, marking a multi-line range.
type Edit struct {
	Kind  Kind
	Pos   *Anchor
	End   *Anchor
	Lines []string
}

// Mismatch is one stale anchor: the caller-supplied hash disagreed with the
// hash recomputed from the current file content.
type Mismatch struct {
	Line     int
	Expected string
	Got      string
}

// MismatchError reports every stale anchor in a batch, deduped by line and
// sorted, together with +/-2 lines of context around each.
type MismatchError struct {
	Mismatches []Mismatch
	Context    string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("hashline mismatch on %d line(s):\n%s", len(e.Mismatches), e.Context)
}

// OutOfRangeError reports anchors referencing a line outside the file,
// distinct from a hash mismatch.
type OutOfRangeError struct {
	Lines []int
	Max   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("hashline: line(s) %v out of range (file has %d line(s))", e.Lines, e.Max)
}

// AllNoOpError is returned when every edit in a batch resolves to a no-op;
// this guards against a model hallucinating a file hash without actually
// changing content.
type AllNoOpError struct {
	NoOps []string
}

func (e *AllNoOpError) Error() string {
	return "No changes made"
}

// Validate checks every edit's anchors against content, dedupes
// structurally-identical edits, and returns the remainder in application
// order (bottom-up: descending line, replace before append before
// prepend, closest-to-anchor authoring order preserved on ties).
func Validate(content string, edits []Edit) ([]Edit, error) {
	lines := splitLines(content)
	total := len(lines)

	deduped := dedupe(edits)

	var outOfRange []int
	var mismatchLines []int
	mismatchByLine := map[int]Mismatch{}
	seenOutOfRange := map[int]bool{}
	seenMismatch := map[int]bool{}

	checkAnchor := func(a *Anchor) {
		if a == nil {
			return
		}
		if a.Line < 1 || int(a.Line) > total {
			if !seenOutOfRange[int(a.Line)] {
				seenOutOfRange[int(a.Line)] = true
				outOfRange = append(outOfRange, int(a.Line))
			}
			return
		}
		got := LineHash(lines[a.Line-1], a.Line)
		if got != a.Hash && !seenMismatch[int(a.Line)] {
			seenMismatch[int(a.Line)] = true
			mismatchByLine[int(a.Line)] = Mismatch{Line: int(a.Line), Expected: a.Hash, Got: got}
			mismatchLines = append(mismatchLines, int(a.Line))
		}
	}

	for _, e := range deduped {
		switch e.Kind {
		case KindReplace:
			if e.Pos == nil {
				return nil, fmt.Errorf("hashline: replace edit requires pos")
			}
			checkAnchor(e.Pos)
			if e.End != nil {
				checkAnchor(e.End)
				if e.Pos.Line > e.End.Line {
					return nil, fmt.Errorf("hashline: replace pos line %d must be <= end line %d", e.Pos.Line, e.End.Line)
				}
			}
		case KindAppend, KindPrepend:
			checkAnchor(e.Pos)
		default:
			return nil, fmt.Errorf("hashline: unknown edit kind %q", e.Kind)
		}
	}

	if len(outOfRange) > 0 {
		sort.Ints(outOfRange)
		return nil, &OutOfRangeError{Lines: outOfRange, Max: total}
	}
	if len(mismatchLines) > 0 {
		sort.Ints(mismatchLines)
		ms := make([]Mismatch, 0, len(mismatchLines))
		for _, ln := range mismatchLines {
			ms = append(ms, mismatchByLine[ln])
		}
		return nil, &MismatchError{Mismatches: ms, Context: buildContext(lines, mismatchLines)}
	}

	return order(deduped, total), nil
}

func editKey(e Edit) string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Pos != nil {
		fmt.Fprintf(&b, "|pos=%d#%s", e.Pos.Line, e.Pos.Hash)
	}
	if e.End != nil {
		fmt.Fprintf(&b, "|end=%d#%s", e.End.Line, e.End.Hash)
	}
	b.WriteString("|lines=")
	b.WriteString(strings.Join(e.Lines, "\x00"))
	return b.String()
}

// dedupe removes structurally-identical edits, keeping the first
// occurrence and preserving relative order of the survivors.
func dedupe(edits []Edit) []Edit {
	seen := make(map[string]bool, len(edits))
	out := make([]Edit, 0, len(edits))
	for _, e := range edits {
		k := editKey(e)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}

type orderedEdit struct {
	edit       Edit
	sortLine   int
	precedence int
	origIndex  int
}

// order assigns each edit a (sort_line, precedence, orig_index) key and
// sorts descending by sort_line, ascending by precedence; ties within
// append/prepend break by descending original index, ties within replace
// break by ascending original index.
func order(edits []Edit, fileLen int) []Edit {
	oe := make([]orderedEdit, len(edits))
	for i, e := range edits {
		oe[i] = orderedEdit{edit: e, origIndex: i}
		switch e.Kind {
		case KindReplace:
			oe[i].precedence = 0
			if e.End != nil {
				oe[i].sortLine = int(e.End.Line)
			} else {
				oe[i].sortLine = int(e.Pos.Line)
			}
		case KindAppend:
			oe[i].precedence = 1
			if e.Pos != nil {
				oe[i].sortLine = int(e.Pos.Line)
			} else {
				oe[i].sortLine = fileLen + 1
			}
		case KindPrepend:
			oe[i].precedence = 2
			if e.Pos != nil {
				oe[i].sortLine = int(e.Pos.Line)
			} else {
				oe[i].sortLine = 0
			}
		}
	}

	sort.SliceStable(oe, func(i, j int) bool {
		if oe[i].sortLine != oe[j].sortLine {
			return oe[i].sortLine > oe[j].sortLine
		}
		if oe[i].precedence != oe[j].precedence {
			return oe[i].precedence < oe[j].precedence
		}
		if oe[i].edit.Kind == KindReplace {
			return oe[i].origIndex < oe[j].origIndex
		}
		return oe[i].origIndex > oe[j].origIndex
	})

	out := make([]Edit, len(oe))
	for i, e := range oe {
		out[i] = e.edit
	}
	return out
}

// buildContext renders +/-2 lines of context around each mismatched line,
// marking the changed line with ">>>".
func buildContext(lines []string, mismatchLines []int) string {
	var b strings.Builder
	shown := map[int]bool{}
	for _, ml := range mismatchLines {
		lo, hi := ml-2, ml+2
		if lo < 1 {
			lo = 1
		}
		if hi > len(lines) {
			hi = len(lines)
		}
		for ln := lo; ln <= hi; ln++ {
			if shown[ln] {
				continue
			}
			shown[ln] = true
			marker := "   "
			if ln == ml {
				marker = ">>>"
			}
			fmt.Fprintf(&b, "%s %d | %s\n", marker, ln, lines[ln-1])
		}
	}
	return b.String()
}
