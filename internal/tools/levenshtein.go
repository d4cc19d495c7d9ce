package tools

// levenshtein computes textbook edit distance, used by edit_file's
// string-replace variant to suggest a similar line when old_str has no
// exact match. No full example repo in the corpus exercises a distance
// library with working code, so this is hand-rolled against the
// standard library rather than grounded on a pack dependency.
func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	la, lb := len(ar), len(br)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = minInt(del, minInt(ins, sub))
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// closestLine finds the line in lines with the smallest edit distance to
// target, returning its 1-based number and text. Returns ok=false for an
// empty file.
func closestLine(lines []string, target string) (lineNo int, text string, ok bool) {
	best := -1
	bestDist := -1
	for i, l := range lines {
		d := levenshtein(l, target)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best == -1 {
		return 0, "", false
	}
	return best + 1, lines[best], true
}
