package proc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// CwdPath returns the path of pid's working directory as seen through procfs.
// Files created under it land in the target's own filesystem view, which may
// differ from the caller's (e.g. containerized targets).
func CwdPath(procRoot string, pid int) string {
	return filepath.Join(procRoot, strconv.Itoa(pid), "cwd")
}

// Quit delivers SIGQUIT to pid. A delivery error (no such process, no
// permission) is returned as-is; a nil return only means the kernel accepted
// the signal, not that the target acted on it.
func Quit(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding pid %d: %w", pid, err)
	}
	if err := p.Signal(syscall.SIGQUIT); err != nil {
		return fmt.Errorf("signaling pid %d: %w", pid, err)
	}
	return nil
}
