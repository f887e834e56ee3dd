package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	m "github.com/openshift-eng/mutest/internal/model"
)

// TestResult captures one bounded execution of the operator test suite.
type TestResult struct {
	ExitCode int
	Duration time.Duration
	Output   []byte
	TimedOut bool
}

// TestRunnerAdapter abstracts test execution for mutation testing.
type TestRunnerAdapter interface {
	// RunSuite executes the configured test command in workDir, enforcing
	// timeout. A non-zero exit code is a normal outcome, not an error;
	// an error means the suite could not be executed at all.
	RunSuite(ctx context.Context, workDir m.Path, timeout time.Duration) (TestResult, error)
}

// LocalTestRunnerAdapter runs the test command via os/exec. Each run gets its
// own process group so the kill on timeout takes hung children down with it.
type LocalTestRunnerAdapter struct {
	command     []string
	outputLimit int
	killGrace   time.Duration
}

// NewLocalTestRunnerAdapter constructs a LocalTestRunnerAdapter for the given
// command line. outputLimit bounds how many bytes of combined output are kept.
func NewLocalTestRunnerAdapter(command []string, outputLimit int) *LocalTestRunnerAdapter {
	return &LocalTestRunnerAdapter{
		command:     command,
		outputLimit: outputLimit,
		killGrace:   5 * time.Second,
	}
}

// RunSuite executes the test command, killing the whole process group when
// the timeout elapses first.
func (a *LocalTestRunnerAdapter) RunSuite(ctx context.Context, workDir m.Path, timeout time.Duration) (TestResult, error) {
	if len(a.command) == 0 {
		return TestResult{}, errors.New("test command is empty")
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// #nosec G204 - the command comes from the user's own configuration
	cmd := exec.CommandContext(runCtx, a.command[0], a.command[1:]...)
	cmd.Dir = string(workDir)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid addresses the whole process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = a.killGrace

	output := &boundedBuffer{limit: a.outputLimit}
	cmd.Stdout = output
	cmd.Stderr = output

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() != nil {
		// Cancelled from outside, not by the per-run timeout. The outcome
		// is void.
		return TestResult{}, ctx.Err()
	}

	result := TestResult{
		Duration: duration,
		Output:   output.Bytes(),
		TimedOut: errors.Is(runCtx.Err(), context.DeadlineExceeded),
	}

	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	if result.TimedOut {
		result.ExitCode = -1
		return result, nil
	}

	return TestResult{}, fmt.Errorf("run test command: %w", err)
}

// boundedBuffer keeps the first limit bytes written to it and drops the rest.
// exec.Cmd serializes writes when the same writer backs stdout and stderr.
type boundedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
			b.truncated = true
		} else {
			b.buf.Write(p)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}

	return len(p), nil
}

func (b *boundedBuffer) Bytes() []byte {
	if !b.truncated {
		return b.buf.Bytes()
	}

	return append(b.buf.Bytes(), []byte("\n[output truncated]\n")...)
}
