package hostprobe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Command runs cmd through the shell and returns its combined
// stdout+stderr, bounded by the host's command timeout. A non-zero exit
// status is not an error: rules match on output, not on status. A
// timeout returns ErrTimeout, never hangs.
func (h *Host) Command(ctx context.Context, cmd string) (string, error) {
	timeout := h.CommandTimeout
	if timeout == 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := h.run(ctx, cmd)
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w: %s", ErrTimeout, cmd)
	}
	return out, err
}

// Run runs cmd through the shell without a timeout bound of its own;
// remediation commands may legitimately take long or wait on the user.
// Cancellation still comes from ctx.
func (h *Host) Run(ctx context.Context, cmd string) (string, error) {
	return h.run(ctx, cmd)
}

func (h *Host) run(ctx context.Context, cmd string) (string, error) {
	c := exec.CommandContext(ctx, "/bin/sh", "-c", cmd)
	out, err := c.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Exit status is part of the output contract, not a failure.
			return string(out), nil
		}
		return "", err
	}
	return string(out), nil
}

// ProcessExists reports whether a process with exactly this name is in
// the process table.
func (h *Host) ProcessExists(ctx context.Context, name string) (bool, error) {
	c := exec.CommandContext(ctx, "pgrep", "-x", name)
	err := c.Run()
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil // no process matched
	}
	return false, fmt.Errorf("process probe failed: %w", err)
}
