//go:build windows

package procexec

import "os/exec"

func shellCommand(command string) *exec.Cmd {
	return exec.Command("cmd", "/c", command)
}

// killGroup on Windows has no POSIX process-group/signal equivalent
// available through os/exec; Kill terminates the immediate child, which is
// the best approximation without a job-object wrapper. Spec.md §9 notes the
// abstract "SIGTERM, then SIGKILL after grace" contract may be substituted
// with OS-equivalent job-object termination on non-POSIX platforms; that
// substitution is left to a future job-object-aware implementation, and
// this one degrades to single-process termination regardless of sig.
func killGroup(cmd *exec.Cmd, sig int) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func groupAlive(cmd *exec.Cmd) bool {
	if cmd.Process == nil {
		return false
	}
	return cmd.Process.Signal(nil) == nil
}
