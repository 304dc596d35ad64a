package attach

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vmdiag/jattach/internal/proc"
)

const defaultProcRoot = "/proc"

// Attacher runs one-shot attach sessions against local JVMs.
type Attacher struct {
	log *zap.SugaredLogger
	out io.Writer

	tmpDir   string
	procRoot string

	maxAttempts     int
	pollInterval    time.Duration
	responseTimeout time.Duration

	// signal delivers the activation signal; newWaiter paces the poll loop.
	// Both are swapped out in tests.
	signal    func(pid int) error
	newWaiter func(interval time.Duration) waiter
}

type Option func(a *Attacher)

// WithLogger replaces the default development logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Attacher) {
		a.log = l.Named("attacher").Sugar()
	}
}

// WithLogLevel raises the minimum level of the attacher's logger.
func WithLogLevel(l zapcore.Level) Option {
	return func(a *Attacher) {
		a.log = a.log.WithOptions(zap.IncreaseLevel(l))
	}
}

// WithOutput sets the writer the response stream is relayed to. Defaults to
// stdout.
func WithOutput(w io.Writer) Option {
	return func(a *Attacher) {
		a.out = w
	}
}

// WithTmpDir overrides the directory holding the attach socket and the
// fallback marker location. Useful when the target's /tmp is mounted
// elsewhere in the caller's mount namespace.
func WithTmpDir(dir string) Option {
	return func(a *Attacher) {
		a.tmpDir = dir
	}
}

// WithProcRoot overrides the procfs mount point used to resolve the
// target's working directory.
func WithProcRoot(dir string) Option {
	return func(a *Attacher) {
		a.procRoot = dir
	}
}

// WithPollSchedule overrides the activation retry budget.
func WithPollSchedule(attempts int, interval time.Duration) Option {
	return func(a *Attacher) {
		a.maxAttempts = attempts
		a.pollInterval = interval
	}
}

// WithResponseTimeout bounds the wait for the response stream. The protocol
// itself has no timeout: a target that never closes its end blocks forever.
// Zero keeps that behavior.
func WithResponseTimeout(d time.Duration) Option {
	return func(a *Attacher) {
		a.responseTimeout = d
	}
}

// New constructs an Attacher with protocol defaults.
func New(opts ...Option) (*Attacher, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	a := &Attacher{
		log:          logger.Named("attacher").Sugar(),
		out:          os.Stdout,
		tmpDir:       DefaultTmpDir,
		procRoot:     defaultProcRoot,
		maxAttempts:  DefaultMaxAttachAttempts,
		pollInterval: DefaultAttachPollInterval,
		signal:       proc.Quit,
		newWaiter:    newLimiterWaiter,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Attach runs one session against pid: locate the socket, activate the
// listener if absent, connect, write the request, relay the response until
// the target closes the connection. Every failure is terminal for the
// session; nothing is retried beyond the activation poll loop.
func (a *Attacher) Attach(ctx context.Context, pid int, command string, args ...string) error {
	log := a.log.With("session", uuid.NewString(), "pid", pid, "command", command)

	if a.socketReady(pid) {
		log.Debugw("attach socket already live")
	} else {
		log.Infow("attach socket absent, starting attach mechanism")
		if err := a.activate(ctx, pid); err != nil {
			return err
		}
	}

	conn, err := a.connect(ctx, pid)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Infow("connected to remote JVM", "socket", SocketPath(a.tmpDir, pid))

	req := Request{Command: command, Args: args}
	if _, err := req.WriteTo(conn); err != nil {
		return fmt.Errorf("writing attach request: %w", err)
	}

	if a.responseTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(a.responseTimeout)); err != nil {
			return fmt.Errorf("setting response deadline: %w", err)
		}
	}
	if err := a.relay(conn, log); err != nil {
		return fmt.Errorf("reading attach response: %w", err)
	}
	return nil
}

// connect dials the attach socket. The path is re-derived from the pid
// rather than reusing an earlier computation.
func (a *Attacher) connect(ctx context.Context, pid int) (net.Conn, error) {
	path := SocketPath(a.tmpDir, pid)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	return conn, nil
}

// relay mirrors the response stream to the output writer until the target
// closes its end. The stream has no completion marker, so close is the only
// terminator. On a mid-stream read error the bytes already written stay
// written; the caller sees a partial response plus the error.
func (a *Attacher) relay(conn net.Conn, log *zap.SugaredLogger) error {
	n, err := io.Copy(a.out, conn)
	log.Debugw("response stream ended", "bytes", n, "err", err)
	return err
}
