package attach

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultTmpDir is where HotSpot creates the attach socket. This is a
// protocol constant, not the caller's TMPDIR; it is only overridden when the
// target's /tmp is mounted elsewhere in the caller's namespace, or in tests.
const DefaultTmpDir = "/tmp"

const socketNameFormat = ".java_pid%d"

// SocketPath returns the rendezvous socket path for pid under dir.
func SocketPath(dir string, pid int) string {
	return filepath.Join(dir, fmt.Sprintf(socketNameFormat, pid))
}

// socketReady reports whether a live attach socket exists for pid. Existence
// of a socket at the well-known path is the only readiness signal the
// protocol provides; no handshake precedes connection.
func (a *Attacher) socketReady(pid int) bool {
	path := SocketPath(a.tmpDir, pid)
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			a.log.Debugw("stat attach socket", "path", path, "err", err)
		}
		return false
	}
	if info.Mode().Type()&os.ModeSocket == 0 {
		// Something squats on the rendezvous path. Report not-ready and
		// leave it alone; it is not ours to remove.
		a.log.Warnw("attach socket path exists but is not a socket", "path", path, "mode", info.Mode().String())
		return false
	}
	return true
}
