package tools

import (
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// unifiedDiff renders a unified diff between before and after for
// edit_file's response text. Same myers.ComputeEdits/gotextdiff.ToUnified
// pipeline the teacher uses to measure stuck-iteration drift; here it is
// repurposed to show the caller exactly what an edit changed.
func unifiedDiff(path, before, after string) string {
	edits := myers.ComputeEdits(span.URIFromPath(path), before, after)
	unified := gotextdiff.ToUnified(path, path, before, edits)

	var b strings.Builder
	for _, hunk := range unified.Hunks {
		fmt.Fprintf(&b, "@@ -%d +%d @@\n", hunk.FromLine, hunk.ToLine)
		for _, line := range hunk.Lines {
			switch line.Kind {
			case gotextdiff.Delete:
				b.WriteString("-" + line.Content)
			case gotextdiff.Insert:
				b.WriteString("+" + line.Content)
			default:
				b.WriteString(" " + line.Content)
			}
		}
	}
	return b.String()
}
