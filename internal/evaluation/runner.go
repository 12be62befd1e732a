// File path: internal/evaluation/runner.go
package evaluation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/beefed-up-geek/code-as-auditors/internal/common/telemetry"
)

// ErrExecutionFailed marks a case program that exited non-zero or could not
// be launched at all.
var ErrExecutionFailed = errors.New("case execution failed")

// CaseRunner executes one compiled case program and leaves its report next
// to the program file.
type CaseRunner interface {
	RunCase(ctx context.Context, programPath string) error
}

// SubprocessRunner shells out to this binary's run-case subcommand so a
// failing program cannot take the whole evaluation down with it.
type SubprocessRunner struct {
	execPath string
}

func NewSubprocessRunner() (*SubprocessRunner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	return &SubprocessRunner{execPath: exe}, nil
}

func (r *SubprocessRunner) RunCase(ctx context.Context, programPath string) error {
	cmd := exec.CommandContext(ctx, r.execPath, "run-case", programPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	start := time.Now()
	err := cmd.Run()
	telemetry.RecordCaseRun(err != nil, time.Since(start))
	if err == nil {
		return nil
	}
	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	tail := lastNonEmptyLine(stderr.String())
	if tail == "" {
		tail = err.Error()
	}
	return fmt.Errorf("%w for %s (exit %d): %s", ErrExecutionFailed, filepath.Base(programPath), exitCode, tail)
}

func lastNonEmptyLine(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
