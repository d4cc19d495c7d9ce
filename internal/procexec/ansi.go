package procexec

import (
	"regexp"
	"strings"
)

// ansiRegex matches CSI sequences, OSC sequences terminated by BEL, and the
// two-character charset-select sequences ESC ( / ESC ).
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]|\x1b\][^\x07]*\x07|\x1b[()][AB012]`)

var newlineRunRe = regexp.MustCompile(`\n{3,}`)

// stripANSI removes ANSI escape sequences in three passes: a regex pass for
// well-formed sequences, a byte-scan pass for any escape the regex missed
// (partial sequences split across output chunks), and a final pass that
// deletes the literal suffixes "0m", "1m", "2m", "22m" and "39m" wherever
// they occur, the numeric-suffix debris the byte scan can leave behind at a
// line boundary.
func stripANSI(s string) string {
	result := ansiRegex.ReplaceAllString(s, "")

	var clean strings.Builder
	clean.Grow(len(result))
	inEscape := false
	for i := 0; i < len(result); i++ {
		c := result[i]
		if c == 0x1b {
			inEscape = true
			continue
		}
		if inEscape {
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				inEscape = false
			} else if c != '[' && c != ';' && !(c >= '0' && c <= '9') {
				inEscape = false
				clean.WriteByte(c)
			}
			continue
		}
		clean.WriteByte(c)
	}

	result = clean.String()
	for _, suffix := range []string{"0m", "1m", "2m", "22m", "39m"} {
		result = strings.ReplaceAll(result, suffix, "")
	}
	return result
}

// sanitize strips ANSI sequences, drops carriage returns, and collapses runs
// of 3+ newlines down to 2, per spec.md §4.4's output pipeline.
func sanitize(s string) string {
	s = stripANSI(s)
	s = strings.ReplaceAll(s, "\r", "")
	return newlineRunRe.ReplaceAllString(s, "\n\n")
}
