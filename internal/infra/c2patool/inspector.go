package c2patool

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"trustmark/internal/domain"
	"trustmark/internal/infra/toolrunner"
)

// Inspector shells out to the c2patool binary to read embedded manifests
// from a local media file.
type Inspector struct {
	Bin     string
	Timeout time.Duration
	Runner  *toolrunner.Runner
	Logger  *slog.Logger
}

func NewInspector(bin string, timeout time.Duration, runner *toolrunner.Runner, logger *slog.Logger) *Inspector {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = toolrunner.New(logger)
	}
	return &Inspector{Bin: bin, Timeout: timeout, Runner: runner, Logger: logger}
}

// Inspect returns the tool's raw JSON report. Output that is not valid JSON
// is treated as a tool failure, so callers only ever parse real reports.
func (i *Inspector) Inspect(ctx context.Context, path string) (string, error) {
	out, err := i.Runner.Run(ctx, i.Timeout, i.Bin, path, "--detailed")
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if !json.Valid([]byte(out)) {
		return "", &domain.ToolError{Tool: "c2patool", ExitCode: 0, Stderr: "output is not valid JSON"}
	}
	return out, nil
}
