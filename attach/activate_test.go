package attach

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWaiter counts poll pauses and lets a test hook run before each check.
type fakeWaiter struct {
	calls  int
	onWait func(call int)
}

func (w *fakeWaiter) Wait(ctx context.Context) error {
	w.calls++
	if w.onWait != nil {
		w.onWait(w.calls)
	}
	return nil
}

func markerPath(dir string, pid int) string {
	return filepath.Join(dir, fmt.Sprintf(".attach_pid%d", pid))
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Empty(t, names)
}

func TestActivateSocketAppears(t *testing.T) {
	const pid = 4242
	dir := t.TempDir()

	a := newTestAttacher(t, WithTmpDir(dir), WithProcRoot(t.TempDir()))

	var signaled []int
	a.signal = func(p int) error {
		// The marker must already be on disk when the signal lands, or the
		// target's handler has nothing to find.
		assert.FileExists(t, markerPath(dir, pid))
		signaled = append(signaled, p)
		return nil
	}

	w := &fakeWaiter{onWait: func(call int) {
		if call == 3 {
			ln, err := net.Listen("unix", SocketPath(dir, pid))
			require.NoError(t, err)
			t.Cleanup(func() { ln.Close() })
		}
	}}
	a.newWaiter = func(time.Duration) waiter { return w }

	require.NoError(t, a.activate(context.Background(), pid))
	assert.Equal(t, []int{pid}, signaled)
	assert.Equal(t, 3, w.calls, "polling must stop as soon as the socket appears")
	assert.NoFileExists(t, markerPath(dir, pid))
}

func TestActivateBudgetExhausted(t *testing.T) {
	const pid = 4242
	dir := t.TempDir()

	a := newTestAttacher(t, WithTmpDir(dir), WithProcRoot(t.TempDir()))
	a.signal = func(int) error { return nil }
	w := &fakeWaiter{}
	a.newWaiter = func(time.Duration) waiter { return w }

	err := a.activate(context.Background(), pid)
	require.ErrorIs(t, err, ErrActivationFailed)
	assert.Equal(t, DefaultMaxAttachAttempts, w.calls)
	requireEmptyDir(t, dir)
}

func TestActivateSignalFails(t *testing.T) {
	const pid = 4242
	dir := t.TempDir()

	a := newTestAttacher(t, WithTmpDir(dir), WithProcRoot(t.TempDir()))
	a.signal = func(int) error { return errors.New("no such process") }
	w := &fakeWaiter{}
	a.newWaiter = func(time.Duration) waiter { return w }

	err := a.activate(context.Background(), pid)
	require.ErrorIs(t, err, ErrActivationFailed)
	assert.Zero(t, w.calls, "no polling after a failed signal")
	requireEmptyDir(t, dir)
}

func TestActivateMarkerInTargetCwd(t *testing.T) {
	const pid = 4242
	dir := t.TempDir()
	procRoot := t.TempDir()
	cwd := filepath.Join(procRoot, "4242", "cwd")
	require.NoError(t, os.MkdirAll(cwd, 0o755))

	a := newTestAttacher(t, WithTmpDir(dir), WithProcRoot(procRoot))
	a.signal = func(int) error {
		// Primary candidate wins: the marker lands in the target's cwd, not
		// the shared tmp dir.
		assert.FileExists(t, markerPath(cwd, pid))
		assert.NoFileExists(t, markerPath(dir, pid))
		return nil
	}
	a.newWaiter = func(time.Duration) waiter {
		return &fakeWaiter{onWait: func(int) {
			ln, err := net.Listen("unix", SocketPath(dir, pid))
			require.NoError(t, err)
			t.Cleanup(func() { ln.Close() })
		}}
	}

	require.NoError(t, a.activate(context.Background(), pid))
	assert.NoFileExists(t, markerPath(cwd, pid))
}

func TestActivateMarkerNotCreatable(t *testing.T) {
	const pid = 4242
	// Neither candidate location exists.
	a := newTestAttacher(t,
		WithTmpDir(filepath.Join(t.TempDir(), "missing")),
		WithProcRoot(filepath.Join(t.TempDir(), "missing")),
	)
	signaled := false
	a.signal = func(int) error { signaled = true; return nil }

	err := a.activate(context.Background(), pid)
	require.ErrorIs(t, err, ErrActivationFailed)
	assert.False(t, signaled, "no signal without a marker on disk")
}

func TestPollScheduleOverride(t *testing.T) {
	const pid = 4242
	dir := t.TempDir()

	a := newTestAttacher(t, WithTmpDir(dir), WithProcRoot(t.TempDir()), WithPollSchedule(2, time.Millisecond))
	a.signal = func(int) error { return nil }
	w := &fakeWaiter{}
	a.newWaiter = func(interval time.Duration) waiter {
		assert.Equal(t, time.Millisecond, interval)
		return w
	}

	err := a.activate(context.Background(), pid)
	require.ErrorIs(t, err, ErrActivationFailed)
	assert.Equal(t, 2, w.calls)
}
