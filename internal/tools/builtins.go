package tools

import (
	"github.com/opencea/cea/internal/fsafety"
	"github.com/opencea/cea/internal/ignore"
	"github.com/opencea/cea/internal/skillsdir"
	"github.com/opencea/cea/internal/todo"
)

// BuildDefault assembles the canonical registry spec.md §4.5 names:
// read_file, grep, glob, edit_file, write_file, delete_file,
// shell_execute, todo_write, load_skill.
func BuildDefault(workDir string, engine *ignore.Engine, reader *fsafety.Reader, store *todo.Store, resolver *skillsdir.Resolver, restricted bool) *Registry {
	r := New()
	RegisterReadFile(r, reader)
	RegisterGrep(r, workDir)
	RegisterGlob(r, workDir, engine)
	RegisterEditFile(r, workDir)
	RegisterWriteFile(r, workDir)
	RegisterDeleteFile(r, workDir)
	RegisterShellExecute(r, workDir, restricted)
	RegisterTodoWrite(r, store)
	RegisterLoadSkill(r, resolver)
	return r
}
