package attach

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/vmdiag/jattach/internal/proc"
)

const (
	// DefaultMaxAttachAttempts bounds the activation poll loop.
	DefaultMaxAttachAttempts = 10
	// DefaultAttachPollInterval is the pause before each socket check after
	// signaling the target.
	DefaultAttachPollInterval = time.Second

	markerNameFormat = ".attach_pid%d"
	markerMode       = 0o660
)

// waiter paces the activation poll loop. Injected in tests so the loop can
// be driven without real sleeps.
type waiter interface {
	Wait(ctx context.Context) error
}

// limiterWaiter blocks one poll interval per call. The limiter starts
// drained so the first socket check happens a full interval after the
// signal, giving the target time to react.
type limiterWaiter struct {
	lim *rate.Limiter
}

func newLimiterWaiter(interval time.Duration) waiter {
	lim := rate.NewLimiter(rate.Every(interval), 1)
	lim.Allow()
	return &limiterWaiter{lim: lim}
}

func (w *limiterWaiter) Wait(ctx context.Context) error {
	return w.lim.Wait(ctx)
}

// activate forces the target to start its attach listener: create the
// marker, send SIGQUIT, poll for the socket. The request is inherently
// unacknowledged, so the poll loop is the only confirmation. The marker is
// removed on every return path.
func (a *Attacher) activate(ctx context.Context, pid int) error {
	markerPath, err := a.createMarker(pid)
	if err != nil {
		return fmt.Errorf("%w: creating marker: %v", ErrActivationFailed, err)
	}
	defer func() {
		if err := os.Remove(markerPath); err != nil {
			a.log.Debugw("removing attach marker", "path", markerPath, "err", err)
		}
	}()

	if err := a.signal(pid); err != nil {
		return fmt.Errorf("%w: %v", ErrActivationFailed, err)
	}
	a.log.Debugw("sent activation signal", "pid", pid)

	wait := a.newWaiter(a.pollInterval)
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := wait.Wait(ctx); err != nil {
			return fmt.Errorf("%w: waiting for attach socket: %v", ErrActivationFailed, err)
		}
		if a.socketReady(pid) {
			a.log.Debugw("attach socket appeared", "pid", pid, "attempt", attempt)
			return nil
		}
		a.log.Debugw("attach socket not ready", "pid", pid, "attempt", attempt)
	}
	return fmt.Errorf("%w: socket did not appear after %d attempts", ErrActivationFailed, a.maxAttempts)
}

// createMarker creates the empty .attach_pid<pid> file the target's SIGQUIT
// handler looks for. Candidates are tried in order: the target's own working
// directory first (visible to the target even when the caller's namespace
// differs), then the shared tmp dir.
func (a *Attacher) createMarker(pid int) (string, error) {
	name := fmt.Sprintf(markerNameFormat, pid)
	candidates := []string{
		filepath.Join(proc.CwdPath(a.procRoot, pid), name),
		filepath.Join(a.tmpDir, name),
	}

	var errs []error
	for _, path := range candidates {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, markerMode)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := f.Close(); err != nil {
			errs = append(errs, err)
			continue
		}
		a.log.Debugw("created attach marker", "path", path)
		return path, nil
	}
	return "", errors.Join(errs...)
}
