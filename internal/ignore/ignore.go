// Package ignore implements the nested .gitignore/.ignore/.fdignore
// resolution used to keep file-reading and shell tools off of build
// artifacts, secrets, and version-control internals. The engine walks
// upward from a target path collecting ignore files from every ancestor
// directory up to (and including) the directory that owns ".git", merges
// their patterns with gitignore semantics, and caches the compiled
// matcher for the life of the process.
package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gitignore "github.com/sabhiram/go-gitignore"
)

var ignoreFileNames = []string{".gitignore", ".ignore", ".fdignore"}

// builtinPatterns is the fixed fallback set applied regardless of any
// ignore file on disk, matching spec.md §4.2. Binary-extension and
// lockfile exclusion is handled by the file-safety reader, not here.
var builtinPatterns = []string{
	"node_modules",
	".git",
	"dist",
	"build",
	"coverage",
	"__pycache__",
	"*.pyc",
	".venv",
	".env.local",
	".env.*.local",
	".next",
	".nuxt",
	".turbo",
	".cache",
	"target",
	"vendor",
}

// Options controls one IsIgnored call.
type Options struct {
	// SkipGitIgnore disables ignore-file-derived matching; the built-in
	// pattern set still applies. Corresponds to a caller passing
	// respect_git_ignore=false.
	SkipGitIgnore bool
}

// Engine caches one compiled matcher per discovered project root.
type Engine struct {
	mu       sync.Mutex
	matchers map[string]*gitignore.GitIgnore
	builtin  *gitignore.GitIgnore
}

// New constructs an Engine with an empty cache.
func New() *Engine {
	return &Engine{
		matchers: make(map[string]*gitignore.GitIgnore),
		builtin:  gitignore.CompileIgnoreLines(builtinPatterns...),
	}
}

// IsIgnored reports whether path (absolute or relative to the current
// working directory) should be excluded from file operations. A path
// whose normalized form escapes the working directory upward is treated
// as outside the project: the ignore check is skipped (other gates must
// still run).
func (e *Engine) IsIgnored(path string, opts Options) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("ignore: resolve path: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return false, fmt.Errorf("ignore: getwd: %w", err)
	}
	rel, err := filepath.Rel(cwd, abs)
	if err != nil {
		return false, fmt.Errorf("ignore: relativize path: %w", err)
	}
	if escapesProject(rel) {
		return false, nil
	}
	slashRel := filepath.ToSlash(rel)

	if e.builtin.MatchesPath(slashRel) {
		return true, nil
	}
	if opts.SkipGitIgnore {
		return false, nil
	}

	matcher, root, err := e.matcherFor(filepath.Dir(abs))
	if err != nil {
		return false, err
	}
	if matcher == nil {
		return false, nil
	}
	relToRoot, err := filepath.Rel(root, abs)
	if err != nil {
		return false, nil
	}
	return matcher.MatchesPath(filepath.ToSlash(relToRoot)), nil
}

func escapesProject(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// matcherFor returns the cached (or newly compiled) matcher for the
// project root that owns startDir, along with that root's path.
func (e *Engine) matcherFor(startDir string) (*gitignore.GitIgnore, string, error) {
	root, err := findProjectRoot(startDir)
	if err != nil {
		return nil, "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if m, ok := e.matchers[root]; ok {
		return m, root, nil
	}

	dirs := collectAncestorDirs(startDir, root)

	var lines []string
	for i := len(dirs) - 1; i >= 0; i-- { // root-most directory first
		dir := dirs[i]
		relDir, err := filepath.Rel(root, dir)
		if err != nil {
			continue
		}
		relDir = filepath.ToSlash(relDir)
		for _, name := range ignoreFileNames {
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			for _, raw := range strings.Split(string(data), "\n") {
				line := strings.TrimRight(raw, "\r")
				if rewritten, ok := rewritePattern(line, relDir); ok {
					lines = append(lines, rewritten...)
				}
			}
		}
	}

	var matcher *gitignore.GitIgnore
	if len(lines) > 0 {
		matcher = gitignore.CompileIgnoreLines(lines...)
	}
	e.matchers[root] = matcher
	return matcher, root, nil
}

// findProjectRoot walks upward from startDir, stopping at (and including)
// the first ancestor containing a .git directory, or the filesystem root.
func findProjectRoot(startDir string) (string, error) {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir, nil
		}
		dir = parent
	}
}

// collectAncestorDirs lists startDir and every ancestor up to and
// including root, leaf-most first.
func collectAncestorDirs(startDir, root string) []string {
	var dirs []string
	dir := startDir
	for {
		dirs = append(dirs, dir)
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return dirs
}

// rewritePattern translates one raw ignore-file line into zero or more
// patterns anchored relative to root, since the compiled matcher is a
// single flat pattern list spanning every ancestor ignore file but each
// line in the source file is only meant to apply from relDir downward.
// Unanchored patterns (no leading or embedded slash) get both a direct
// variant and a "**/" recursive-descendant variant so a nested
// .gitignore's slashless pattern still reaches files below it.
func rewritePattern(line, relDir string) ([]string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, false
	}

	negate := strings.HasPrefix(trimmed, "!")
	body := trimmed
	if negate {
		body = strings.TrimPrefix(body, "!")
	}

	anchored := strings.HasPrefix(body, "/")
	if anchored {
		body = strings.TrimPrefix(body, "/")
	} else {
		anchored = strings.Contains(strings.TrimSuffix(body, "/"), "/")
	}

	prefixed := func(p string) string {
		if relDir == "." || relDir == "" {
			return p
		}
		return relDir + "/" + p
	}

	var variants []string
	switch {
	case relDir == "." || relDir == "":
		variants = []string{body}
	case anchored:
		variants = []string{prefixed(body)}
	default:
		variants = []string{prefixed(body), prefixed("**/" + body)}
	}

	out := make([]string, len(variants))
	for i, v := range variants {
		if negate {
			out[i] = "!" + v
		} else {
			out[i] = v
		}
	}
	return out, true
}
