package hashline

import (
	"regexp"
	"strings"
)

var copiedHashlinePrefixRe = regexp.MustCompile(`^\d+#[A-Z]{2}[:|] `)

// StripCopiedPrefixes splits a caller-supplied multi-line replacement
// string on "\n" and heuristically strips either copied hashline prefixes
// ("12#MQ: " / "12#MQ| ") or unified-diff "+" markers, when at least half
// of the non-empty lines carry the prefix in question. A trailing empty
// line produced by a terminal "\n" is dropped.
func StripCopiedPrefixes(text string) []string {
	raw := strings.Split(text, "\n")
	if len(raw) > 0 && raw[len(raw)-1] == "" {
		raw = raw[:len(raw)-1]
	}

	nonEmpty, hashlineCount, diffCount := 0, 0, 0
	for _, l := range raw {
		if l == "" {
			continue
		}
		nonEmpty++
		if copiedHashlinePrefixRe.MatchString(l) {
			hashlineCount++
		}
		if strings.HasPrefix(l, "+") {
			diffCount++
		}
	}

	out := make([]string, len(raw))
	copy(out, raw)

	if nonEmpty == 0 {
		return out
	}
	if float64(hashlineCount)/float64(nonEmpty) >= 0.5 {
		for i, l := range out {
			out[i] = copiedHashlinePrefixRe.ReplaceAllString(l, "")
		}
		return out
	}
	if float64(diffCount)/float64(nonEmpty) >= 0.5 {
		for i, l := range out {
			out[i] = strings.TrimPrefix(l, "+")
		}
		return out
	}
	return out
}
