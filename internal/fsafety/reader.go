// Package fsafety implements the gated, windowed file reader consumed by
// the read_file tool: ignore-rule, binary, and size-cap gates followed by
// a UTF-8 read and hashline-tagged rendering of the requested window. The
// reader is pure with respect to process state beyond the filesystem
// itself and the caller-supplied ignore engine.
package fsafety

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/opencea/cea/internal/hashline"
	"github.com/opencea/cea/internal/ignore"
)

const (
	maxFileSize    = 1 << 20 // 1 MiB hard cap
	sniffChunkSize = 4096
	defaultLimit   = 2000
	defaultBefore  = 5
	defaultAfter   = 10
)

// binaryExtensions is the fixed extension denylist: images, audio/video,
// archives, executables, fonts, databases, and lockfiles.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".tiff": true, ".svg": true,
	".mp3": true, ".mp4": true, ".wav": true, ".avi": true, ".mov": true,
	".mkv": true, ".flac": true, ".ogg": true, ".webm": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".7z": true,
	".rar": true, ".xz": true, ".zst": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".o": true, ".a": true, ".class": true, ".wasm": true,
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true, ".eot": true,
	".db": true, ".sqlite": true, ".sqlite3": true,
	".lock": true,
}

// Kind classifies why a read_window call failed.
type Kind string

const (
	KindIgnored       Kind = "ignored"
	KindBinary        Kind = "binary"
	KindTooLarge      Kind = "too_large"
	KindNotFound      Kind = "not_found"
	KindInvalidOffset Kind = "invalid_offset"
	KindInvalidLimit  Kind = "invalid_limit"
)

// Error is returned for every read_window failure mode named in spec §4.3.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fsafety: %s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("fsafety: %s: %s", e.Kind, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// WindowOptions selects the slice of a file to render. AroundLine takes
// precedence over Offset/Limit when both are supplied.
type WindowOptions struct {
	Offset        *int
	Limit         *int
	AroundLine    *int
	Before        *int
	After         *int
	SkipGitIgnore bool
}

// Window is the structured result of a successful read_window call.
type Window struct {
	Path         string
	Bytes        int
	TotalLines   int
	StartLine    int
	EndLine      int
	Truncated    bool
	FileHash     string
	LastModified time.Time
	// NumberedContent holds one hashline-tagged line per rendered line,
	// joined with "\n". Callers that build the full bracketed response
	// block wrap this with "======== <basename> L<a>-L<b> ========" /
	// "======== end ========".
	NumberedContent string
}

// LastModifiedISO8601 renders LastModified per spec.md's ISO-8601 field.
func (w *Window) LastModifiedISO8601() string {
	return w.LastModified.UTC().Format(time.RFC3339)
}

// Reader is the gated file reader. It holds no mutable state of its own;
// the ignore engine it wraps owns the only process-lifetime cache.
type Reader struct {
	ignoreEngine *ignore.Engine
}

// New constructs a Reader backed by engine.
func New(engine *ignore.Engine) *Reader {
	return &Reader{ignoreEngine: engine}
}

// ReadWindow runs the four-gate pipeline (ignore, binary, size, UTF-8) and
// renders the requested window with hashline tags.
func (r *Reader) ReadWindow(path string, opts WindowOptions) (*Window, error) {
	if err := validateOffsetLimit(path, opts); err != nil {
		return nil, err
	}

	ignored, err := r.ignoreEngine.IsIgnored(path, ignore.Options{SkipGitIgnore: opts.SkipGitIgnore})
	if err != nil {
		return nil, err
	}
	if ignored {
		return nil, &Error{Kind: KindIgnored, Path: path}
	}

	if isBinaryExtension(path) {
		return nil, &Error{Kind: KindBinary, Path: path}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Kind: KindNotFound, Path: path, Err: err}
		}
		return nil, fmt.Errorf("fsafety: stat %s: %w", path, err)
	}
	if info.Size() > maxFileSize {
		return nil, &Error{Kind: KindTooLarge, Path: path}
	}

	content, err := readAllCheckingBinary(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(content) {
		return nil, &Error{Kind: KindBinary, Path: path}
	}

	lines := strings.Split(string(content), "\n")
	total := len(lines)
	start, end := selectWindow(opts, total)

	rendered := make([]string, 0, end-start+1)
	for ln := start; ln <= end; ln++ {
		text := lines[ln-1]
		a := hashline.Anchor{Line: uint32(ln), Hash: hashline.LineHash(text, uint32(ln))}
		rendered = append(rendered, hashline.FormatLine(a, text))
	}

	return &Window{
		Path:            path,
		Bytes:           len(content),
		TotalLines:      total,
		StartLine:       start,
		EndLine:         end,
		Truncated:       end < total || start > 1,
		FileHash:        hashline.FileHash(content),
		LastModified:    info.ModTime(),
		NumberedContent: strings.Join(rendered, "\n"),
	}, nil
}

// FormatBlock renders the bracketed display block callers (the read_file
// tool) embed in their final text response.
func FormatBlock(w *Window) string {
	base := filepath.Base(w.Path)
	var b strings.Builder
	fmt.Fprintf(&b, "======== %s L%d-L%d ========\n", base, w.StartLine, w.EndLine)
	b.WriteString(w.NumberedContent)
	b.WriteString("\n======== end ========")
	return b.String()
}

func isBinaryExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return binaryExtensions[ext]
}

// readAllCheckingBinary reads the whole file (bounded by the size cap
// already enforced by the caller) and fails fast if a NUL byte appears
// before the first sniffChunkSize bytes have been decoded as runes.
func readAllCheckingBinary(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fsafety: open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("fsafety: read %s: %w", path, err)
	}
	if isBinaryContent(data) {
		return nil, &Error{Kind: KindBinary, Path: path}
	}
	return data, nil
}

func isBinaryContent(data []byte) bool {
	limit := sniffChunkSize
	if limit > len(data) {
		limit = len(data)
	}
	i := 0
	for i < limit {
		r, size := utf8.DecodeRune(data[i:])
		if r == 0 {
			return true
		}
		if size == 0 {
			break
		}
		i += size
	}
	return false
}

func validateOffsetLimit(path string, opts WindowOptions) error {
	if opts.Offset != nil && *opts.Offset < 0 {
		return &Error{Kind: KindInvalidOffset, Path: path}
	}
	if opts.Limit != nil && *opts.Limit <= 0 {
		return &Error{Kind: KindInvalidLimit, Path: path}
	}
	return nil
}

func selectWindow(opts WindowOptions, total int) (start, end int) {
	if opts.AroundLine != nil {
		before := defaultBefore
		if opts.Before != nil {
			before = *opts.Before
		}
		after := defaultAfter
		if opts.After != nil {
			after = *opts.After
		}
		start = *opts.AroundLine - before
		if start < 1 {
			start = 1
		}
		end = *opts.AroundLine + after
		if end > total {
			end = total
		}
		return start, end
	}

	offset := 0
	if opts.Offset != nil {
		offset = *opts.Offset
	}
	limit := defaultLimit
	if opts.Limit != nil {
		limit = *opts.Limit
	}
	start = offset + 1
	end = offset + limit
	if end > total {
		end = total
	}
	if start > end {
		// offset lands past end of file: report an empty window rather
		// than re-rendering the last line.
		start = end + 1
	}
	return start, end
}
