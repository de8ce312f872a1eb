package processrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"visionreport/internal/shared/metrics"
	"visionreport/internal/shared/telemetry"
)

// Spec describes one child process. Args are passed as argv entries, never
// through a shell.
type Spec struct {
	Executable string
	Args       []string
	Dir        string
	Timeout    time.Duration
}

// Result is the captured outcome of a finished child.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner spawns external processes with a bound on how many run at once.
type Runner struct {
	sem            chan struct{}
	defaultTimeout time.Duration
}

// New constructs a Runner allowing concurrency children at a time. A zero
// defaultTimeout means children run until they exit or ctx ends.
func New(concurrency int, defaultTimeout time.Duration) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Runner{
		sem:            make(chan struct{}, concurrency),
		defaultTimeout: defaultTimeout,
	}
}

// RunScript runs executable with script followed by argPaths. Every path must
// exist or a *NotFoundError is returned without spawning.
func (r *Runner) RunScript(ctx context.Context, executable, script string, argPaths ...string) (Result, error) {
	for _, p := range append([]string{executable, script}, argPaths...) {
		if err := requireExists(p); err != nil {
			return Result{}, err
		}
	}
	args := append([]string{script}, argPaths...)
	return r.Run(ctx, Spec{
		Executable: executable,
		Args:       args,
		Dir:        filepath.Dir(script),
	})
}

// Run executes spec and waits for it to finish. Exit code 0 is success no
// matter what was written to stderr.
func (r *Runner) Run(ctx context.Context, spec Spec) (Result, error) {
	if err := requireExists(spec.Executable); err != nil {
		return Result{}, err
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%w: %v", ErrBusy, ctx.Err())
	}
	defer func() { <-r.sem }()

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, spec.Executable, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Don't wait on grandchildren holding the pipes open after a kill.
	cmd.WaitDelay = 5 * time.Second

	scriptName := scriptLabel(spec)
	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
		Duration: time.Since(start),
	}

	fields := map[string]any{
		"executable":  spec.Executable,
		"script":      scriptName,
		"duration_ms": res.Duration.Milliseconds(),
	}

	if err == nil {
		metrics.ObserveProcessRun(scriptName, "success", res.Duration.Seconds())
		telemetry.Info("process.run.completed", fields)
		return res, nil
	}

	if timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		res.ExitCode = -1
		metrics.ObserveProcessRun(scriptName, "timeout", res.Duration.Seconds())
		fields["timeout"] = timeout.String()
		telemetry.Error("process.run.timeout", fields)
		return res, &TimeoutError{Timeout: timeout, Stderr: res.Stderr}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		metrics.ObserveProcessRun(scriptName, "canceled", res.Duration.Seconds())
		fields["err"] = ctxErr.Error()
		telemetry.Warn("process.run.canceled", fields)
		return res, fmt.Errorf("run %s: %w", scriptName, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		metrics.ObserveProcessRun(scriptName, "failed", res.Duration.Seconds())
		fields["exit_code"] = res.ExitCode
		fields["stderr"] = truncate(res.Stderr, 2048)
		telemetry.Error("process.run.failed", fields)
		return res, &ProcessError{ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	res.ExitCode = -1
	metrics.ObserveProcessRun(scriptName, "error", res.Duration.Seconds())
	fields["err"] = err.Error()
	telemetry.Error("process.run.error", fields)
	return res, fmt.Errorf("run %s: %w", spec.Executable, err)
}

func requireExists(path string) error {
	if path == "" {
		return &NotFoundError{Path: path}
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &NotFoundError{Path: path}
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}

func scriptLabel(spec Spec) string {
	if len(spec.Args) > 0 {
		return filepath.Base(spec.Args[0])
	}
	return filepath.Base(spec.Executable)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
