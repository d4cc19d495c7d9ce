// Package skillsdir resolves skill markdown files for the load_skill tool.
// A skill is a named markdown document under the configured skills
// directory, optionally with a bundled sub-directory of supporting files
// reachable via a relativePath.
package skillsdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Error kinds returned by Load.
var (
	ErrInvalidName         = fmt.Errorf("skillsdir: name must not contain '/' or '..'")
	ErrInvalidRelativePath = fmt.Errorf("skillsdir: relativePath must not escape the skill directory or be absolute")
)

// Resolver resolves skill files under a fixed root directory.
type Resolver struct {
	root string
}

// New constructs a Resolver rooted at dir (the configured skills_dir).
func New(dir string) *Resolver {
	return &Resolver{root: dir}
}

// Load reads <skills_dir>/<name>.md, or, when relativePath is non-empty,
// <skills_dir>/<name>/<relativePath>.
func (r *Resolver) Load(name, relativePath string) (string, error) {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return "", ErrInvalidName
	}

	if relativePath == "" {
		data, err := os.ReadFile(filepath.Join(r.root, name+".md"))
		if err != nil {
			return "", fmt.Errorf("skillsdir: read skill %q: %w", name, err)
		}
		return string(data), nil
	}

	if filepath.IsAbs(relativePath) || strings.Contains(relativePath, "..") {
		return "", ErrInvalidRelativePath
	}

	skillDir := filepath.Join(r.root, name)
	full := filepath.Join(skillDir, relativePath)

	rel, err := filepath.Rel(skillDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidRelativePath
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("skillsdir: read %q in skill %q: %w", relativePath, name, err)
	}
	return string(data), nil
}
