// Package hashline implements the content-addressed line-anchoring codec:
// deterministic per-line and whole-file fingerprints, LINE#ID tag parsing,
// and the ordering/splicing rules for applying a batch of edits. The codec
// holds no state; every function here is pure.
package hashline

import (
	"encoding/binary"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Alphabet is the 16-letter token alphabet; a 2-character token encodes one
// byte (16x16 nibbles, high nibble first).
const Alphabet = "ZPMQVRWSNKTXJBYH"

// Anchor identifies one line by number and its content hash token.
type Anchor struct {
	Line uint32
	Hash string // 2-character uppercase token
}

// String renders the anchor as "LINE#ID", e.g. "42#MQ".
func (a Anchor) String() string {
	return fmt.Sprintf("%d#%s", a.Line, a.Hash)
}

// FormatLine renders the numbered-content line form used by the file-safety
// reader: "  <LINE#ID> | <text>".
func FormatLine(a Anchor, text string) string {
	return fmt.Sprintf("  %s | %s", a, text)
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalize(text string) string {
	text = strings.TrimSuffix(text, "\r")
	return whitespaceRe.ReplaceAllString(text, "")
}

func hasLetterOrNumber(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// seededSum64 mixes an 8-byte big-endian seed ahead of the payload before
// hashing. cespare/xxhash/v2 implements XXH64 only (no native seed
// parameter and no XXH32 variant); seed-mixing via a digest prefix and
// truncating to the ranges spec'd below is how this codec gets XXH32-shaped
// seeded behavior out of the one xxHash implementation available.
func seededSum64(s string, seed uint64) uint64 {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seed)
	h := xxhash.New()
	h.Write(buf[:])
	h.Write([]byte(s))
	return h.Sum64()
}

// LineHash computes the 2-character token for one line. lineNumber is
// mixed into the hash seed only when the whitespace-stripped text has no
// Unicode letter or number, so blank/whitespace-only lines are
// distinguished by position rather than colliding on an empty string.
func LineHash(text string, lineNumber uint32) string {
	normalized := normalize(text)
	var seed uint64
	if !hasLetterOrNumber(normalized) {
		seed = uint64(lineNumber)
	}
	sum := seededSum64(normalized, seed)
	b := byte(sum % 256)
	return string([]byte{Alphabet[b>>4], Alphabet[b&0x0F]})
}

// FileHash computes the whole-file fingerprint: 8 lowercase hex characters.
func FileHash(content []byte) string {
	sum := xxhash.Sum64(content)
	return fmt.Sprintf("%08x", uint32(sum))
}

// tokenRe matches a bare "<digits>#<2 letters>" anchor anywhere in a string.
var tokenRe = regexp.MustCompile(`(\d+)#([A-Za-z]{2})`)

var leadingMarkers = []string{">>>", ">>", "+", "-"}

// ParseTag extracts an Anchor from a line of text. It accepts a bare
// "LINE#ID" at the start of the (trimmed) string, optionally preceded by a
// diff-style marker (">>>", ">>", "+", "-") and whitespace, and also
// accepts the same token embedded right after a ":" or "-" separator, so
// grep-style output like "./file.ts:7#MQ | ..." parses.
func ParseTag(s string) (Anchor, bool) {
	trimmed := strings.TrimSpace(s)
	for _, marker := range leadingMarkers {
		if strings.HasPrefix(trimmed, marker) {
			trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
			break
		}
	}

	loc := tokenRe.FindStringSubmatchIndex(trimmed)
	if loc == nil {
		return Anchor{}, false
	}
	if loc[0] != 0 {
		prefix := trimmed[:loc[0]]
		if !strings.HasSuffix(prefix, ":") && !strings.HasSuffix(prefix, "-") {
			return Anchor{}, false
		}
	}

	lineStr := trimmed[loc[2]:loc[3]]
	hash := strings.ToUpper(trimmed[loc[4]:loc[5]])
	line, err := strconv.ParseUint(lineStr, 10, 32)
	if err != nil || line < 1 {
		return Anchor{}, false
	}
	return Anchor{Line: uint32(line), Hash: hash}, true
}

// AnchorsForContent computes one Anchor per line of content, in order.
func AnchorsForContent(content string) []Anchor {
	lines := splitLines(content)
	anchors := make([]Anchor, len(lines))
	for i, l := range lines {
		ln := uint32(i + 1)
		anchors[i] = Anchor{Line: ln, Hash: LineHash(l, ln)}
	}
	return anchors
}

func splitLines(content string) []string {
	return strings.Split(content, "\n")
}
