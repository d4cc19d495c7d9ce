package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/opencea/cea/internal/ignore"
)

var globSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"pattern": {"type": "string"},
		"path": {"type": "string"},
		"respect_git_ignore": {"type": "boolean"}
	},
	"required": ["pattern"]
}`)

type globInput struct {
	Pattern          string `json:"pattern"`
	Path             string `json:"path"`
	RespectGitIgnore *bool  `json:"respect_git_ignore"`
}

type globMatch struct {
	path    string
	modTime int64
}

// RegisterGlob wires the glob tool (§4.5): pattern expansion (supporting
// "**" for recursive descent) over a directory tree, filtered through
// the ignore engine unless overridden, sorted by modification time
// descending. Each top-level entry of the scan root is walked on its own
// goroutine via errgroup, the teacher's unused go.mod dependency given a
// home here since no full example repo in the pack demonstrates it.
func RegisterGlob(r *Registry, workDir string, engine *ignore.Engine) {
	r.Register(Definition{
		Name:        "glob",
		Description: "Expand a glob pattern (supporting ** for recursive descent) under a directory, returning absolute paths newest-first.",
		InputSchema: globSchema,
	}, func(ctx context.Context, input json.RawMessage) (string, error) {
		var in globInput
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("glob: %w", err)
		}
		if in.Pattern == "" {
			return "", fmt.Errorf("glob: pattern must not be empty")
		}

		root := workDir
		if in.Path != "" {
			resolved, err := resolvePath(workDir, in.Path)
			if err != nil {
				return "", fmt.Errorf("glob: %w", err)
			}
			root = resolved
		}

		skipGitIgnore := in.RespectGitIgnore != nil && !*in.RespectGitIgnore

		entries, err := os.ReadDir(root)
		if err != nil {
			return "", fmt.Errorf("glob: read %s: %w", root, err)
		}

		results := make([][]globMatch, len(entries))
		g := new(errgroup.Group)
		for i, entry := range entries {
			i, entry := i, entry
			g.Go(func() error {
				matches, err := scanForGlob(root, filepath.Join(root, entry.Name()), in.Pattern, engine, skipGitIgnore)
				if err != nil {
					return err
				}
				results[i] = matches
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return "", fmt.Errorf("glob: %w", err)
		}

		var all []globMatch
		for _, res := range results {
			all = append(all, res...)
		}
		sort.SliceStable(all, func(i, j int) bool { return all[i].modTime > all[j].modTime })

		paths := make([]string, len(all))
		for i, m := range all {
			paths[i] = m.path
		}
		return strings.Join(paths, "\n"), nil
	})
}

func scanForGlob(root, start, pattern string, engine *ignore.Engine, skipGitIgnore bool) ([]globMatch, error) {
	var matches []globMatch
	err := filepath.WalkDir(start, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || (d.Name() != "." && strings.HasPrefix(d.Name(), ".") && p != start) {
				return filepath.SkipDir
			}
			if engine != nil {
				if ignored, ierr := engine.IsIgnored(p, ignore.Options{SkipGitIgnore: skipGitIgnore}); ierr == nil && ignored {
					return filepath.SkipDir
				}
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		if !matchGlobPattern(pattern, filepath.ToSlash(rel)) {
			return nil
		}
		if engine != nil {
			if ignored, ierr := engine.IsIgnored(p, ignore.Options{SkipGitIgnore: skipGitIgnore}); ierr == nil && ignored {
				return nil
			}
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		matches = append(matches, globMatch{path: p, modTime: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// matchGlobPattern matches a slash-separated glob pattern against a
// slash-separated relative path, treating a "**" segment as zero or more
// path segments. filepath.Match handles the non-"**" segments, giving
// standard single-segment "*"/"?"/"[...]" semantics.
func matchGlobPattern(pattern, name string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(name, "/"))
}

func matchSegments(pat, name []string) bool {
	if len(pat) == 0 {
		return len(name) == 0
	}
	if pat[0] == "**" {
		if matchSegments(pat[1:], name) {
			return true
		}
		if len(name) == 0 {
			return false
		}
		return matchSegments(pat, name[1:])
	}
	if len(name) == 0 {
		return false
	}
	ok, err := filepath.Match(pat[0], name[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pat[1:], name[1:])
}
