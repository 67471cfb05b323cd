package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"trustmark/internal/domain"
)

// stderr beyond this is noise; keep enough to diagnose the failure.
const maxStderrBytes = 4096

// Runner executes external binaries with a hard timeout. All tool packages
// (yt-dlp, c2patool, ffprobe) go through it so timeout and error shaping
// behave identically everywhere.
type Runner struct {
	Logger *slog.Logger
}

func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Logger: logger}
}

// Run executes bin with args and returns its stdout. The process is killed
// when the timeout elapses; that surfaces as TimeoutError, a non-zero exit
// as ToolError.
func (r *Runner) Run(ctx context.Context, timeout time.Duration, bin string, args ...string) (string, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	tool := filepath.Base(bin)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			r.Logger.Warn("tool timed out", "tool", tool, "timeout", timeout)
			return "", &domain.TimeoutError{Op: tool, Timeout: timeout}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			r.Logger.Warn("tool exited non-zero", "tool", tool, "exit_code", exitErr.ExitCode(), "elapsed", elapsed)
			return "", &domain.ToolError{
				Tool:     tool,
				ExitCode: exitErr.ExitCode(),
				Stderr:   truncate(stderr.String(), maxStderrBytes),
			}
		}
		// Binary missing or not executable.
		return "", &domain.ToolError{Tool: tool, ExitCode: -1, Stderr: err.Error()}
	}

	r.Logger.Debug("tool finished", "tool", tool, "elapsed", elapsed)
	return stdout.String(), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
