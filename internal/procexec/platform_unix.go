//go:build !windows

package procexec

import (
	"os/exec"
	"syscall"
)

func shellCommand(command string) *exec.Cmd {
	cmd := exec.Command("bash", "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// killGroup delivers sig to the process group led by cmd's pid.
func killGroup(cmd *exec.Cmd, sig int) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.Signal(sig))
}

// groupAlive probes the process group with a zero signal; EPERM means the
// group still exists but this process can't signal it (treated as alive),
// ESRCH means it's gone.
func groupAlive(cmd *exec.Cmd) bool {
	if cmd.Process == nil {
		return false
	}
	err := syscall.Kill(-cmd.Process.Pid, 0)
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
