// pathutil.go resolves and validates paths supplied by tool input, and
// implements an atomic file write. Grounded on the sibling pack repo's
// tools/pathutil.go: reject any path whose relation to the working
// directory starts with "..", and write new content to a temp file in
// the same directory before renaming it into place.
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolvePath joins requested onto workDir (or uses it directly if
// already absolute) and rejects any result that escapes workDir.
func resolvePath(workDir, requested string) (string, error) {
	var full string
	if filepath.IsAbs(requested) {
		full = filepath.Clean(requested)
	} else {
		full = filepath.Join(workDir, requested)
	}

	rel, err := filepath.Rel(workDir, full)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", requested, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the working directory", requested)
	}
	return full, nil
}

// atomicWrite writes content to target via a temp file created in the
// same directory, then renames it into place, so a crash mid-write never
// leaves a partially-written file at target.
func atomicWrite(target string, content []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".cea-write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	tmpPath = ""
	return nil
}
