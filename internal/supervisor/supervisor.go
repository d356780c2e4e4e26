// Package supervisor spawns the downloaded worker binary with a fixed
// argument vector, retains its handle, and signals and reaps it on
// request. At most one child process is held at any time.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/interlay/vault-runner/internal/chain"
	"github.com/interlay/vault-runner/internal/retry"
)

// ErrChildProcessExists is returned by Spawn when a child is already held.
var ErrChildProcessExists = errors.New("supervisor: a child process is already running")

// ErrNoChildProcess is returned by TerminateAndWait when no child is held.
var ErrNoChildProcess = errors.New("supervisor: no child process is running")

// Supervisor holds at most one running worker process. The zero value
// is not usable — create one with New.
//
// The spec's concurrency model assumes a single cooperative task owns
// the Runner; in Go the update loop and the shutdown coordinator are
// genuinely separate goroutines that can both reach TerminateAndWait at
// once (one racing a replace-in-place, the other racing a signal), so
// mu serializes access to cmd instead of relying on a single-owner
// invariant that doesn't hold under real OS threads.
type Supervisor struct {
	logger *zap.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// New creates a Supervisor.
func New(logger *zap.Logger) *Supervisor {
	return &Supervisor{logger: logger.Named("supervisor")}
}

// Running reports whether a child process is currently held.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Spawn starts downloaded.Path with exactly args, inheriting stdin and
// stderr from this process and directing stdout to stdoutWriter (pass
// os.Stdout in production, a buffer in tests — the spec's stdout_mode).
// Fails with ErrChildProcessExists if a child is already held.
//
// The spawn attempt itself is wrapped in the retry harness: a failed
// start is often transient (e.g. "text file busy" immediately after the
// binary was fsync'd and renamed into place).
func (s *Supervisor) Spawn(ctx context.Context, downloaded chain.DownloadedRelease, args []string, stdoutWriter io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return ErrChildProcessExists
	}

	cmd, err := retry.Do(ctx, s.logger, "spawn worker", func() (*exec.Cmd, error) {
		c := exec.Command(downloaded.Path, args...)
		c.Stdin = os.Stdin
		c.Stdout = stdoutWriter
		c.Stderr = os.Stderr
		if err := c.Start(); err != nil {
			return nil, fmt.Errorf("supervisor: failed to start %s: %w", downloaded.Path, err)
		}
		return c, nil
	})
	if err != nil {
		return err
	}

	s.cmd = cmd
	s.logger.Info("worker spawned",
		zap.String("path", downloaded.Path),
		zap.Int("pid", cmd.Process.Pid),
		zap.Strings("args", args),
	)
	return nil
}

// TerminateAndWait sends SIGTERM to the held child, blocks until it is
// reaped, and clears the held handle. Returns the pid of the terminated
// process. Fails with ErrNoChildProcess if no child is held.
//
// There is no SIGKILL escalation: a worker that ignores SIGTERM will
// deadlock TerminateAndWait indefinitely. This is a documented,
// intentional limitation (see DESIGN.md Open Question decisions), not
// an oversight.
func (s *Supervisor) TerminateAndWait(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return 0, ErrNoChildProcess
	}

	cmd := s.cmd
	pid := cmd.Process.Pid

	signalErr := retry.DoVoid(ctx, s.logger, "terminate worker", func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	})
	if signalErr != nil {
		s.logger.Warn("supervisor: failed to signal worker", zap.Int("pid", pid), zap.Error(signalErr))
		return 0, fmt.Errorf("supervisor: failed to send SIGTERM to pid %d: %w", pid, signalErr)
	}

	start := time.Now()
	err := cmd.Wait()
	s.cmd = nil

	if err != nil {
		s.logger.Warn("supervisor: worker exited with an error after SIGTERM",
			zap.Int("pid", pid),
			zap.Duration("wait", time.Since(start)),
			zap.Error(err),
		)
	} else {
		s.logger.Info("worker terminated",
			zap.Int("pid", pid),
			zap.Duration("wait", time.Since(start)),
		)
	}

	return pid, nil
}
