package processrunner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shell = "/bin/sh"

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func TestRunScriptSuccessCapturesStreams(t *testing.T) {
	script := writeScript(t, "echo \"got $1\"\necho warning >&2\nexit 0\n")
	input := filepath.Join(t.TempDir(), "in.png")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))

	res, err := New(1, time.Minute).RunScript(context.Background(), shell, script, input)

	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "got "+input+"\n", res.Stdout)
	assert.Equal(t, "warning\n", res.Stderr)
}

func TestRunScriptNonZeroExit(t *testing.T) {
	script := writeScript(t, "echo first >&2\necho 'model failed' >&2\nexit 2\n")

	res, err := New(1, 0).RunScript(context.Background(), shell, script)

	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 2, procErr.ExitCode)
	assert.Contains(t, procErr.Stderr, "model failed")
	assert.Equal(t, "process exited with code 2: model failed", procErr.Error())
	assert.Equal(t, 2, res.ExitCode)
}

func TestRunScriptMissingPathsFailFast(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "spawned")
	script := writeScript(t, "touch "+marker+"\n")

	r := New(1, 0)
	_, err := r.RunScript(context.Background(), filepath.Join(dir, "nope-python"), script)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, filepath.Join(dir, "nope-python"), nf.Path)

	_, err = r.RunScript(context.Background(), shell, filepath.Join(dir, "missing.py"))
	require.ErrorAs(t, err, &nf)

	_, err = r.RunScript(context.Background(), shell, script, filepath.Join(dir, "missing.png"))
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, filepath.Join(dir, "missing.png"), nf.Path)

	assert.NoFileExists(t, marker)
}

func TestRunTimeout(t *testing.T) {
	script := writeScript(t, "sleep 5\n")

	start := time.Now()
	_, err := New(1, 0).Run(context.Background(), Spec{
		Executable: shell,
		Args:       []string{script},
		Timeout:    200 * time.Millisecond,
	})

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 200*time.Millisecond, timeoutErr.Timeout)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunDrainsLargeOutput(t *testing.T) {
	// Well past the OS pipe buffer on both streams.
	script := writeScript(t, "i=0\nwhile [ $i -lt 4000 ]; do echo 0123456789012345678901234567890123456789; echo 0123456789012345678901234567890123456789 >&2; i=$((i+1)); done\n")

	res, err := New(1, 30*time.Second).Run(context.Background(), Spec{Executable: shell, Args: []string{script}})

	require.NoError(t, err)
	assert.Len(t, res.Stdout, 4000*41)
	assert.Len(t, res.Stderr, 4000*41)
}

func TestRunBoundsConcurrency(t *testing.T) {
	script := writeScript(t, "sleep 0.2\n")
	r := New(2, 0)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Run(context.Background(), Spec{Executable: shell, Args: []string{script}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Five 200ms children two at a time need at least three rounds.
	assert.GreaterOrEqual(t, time.Since(start), 600*time.Millisecond)
	assert.Len(t, r.sem, 0)
}

func TestRunWaitingRespectsContext(t *testing.T) {
	script := writeScript(t, "sleep 1\n")
	r := New(1, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Run(context.Background(), Spec{Executable: shell, Args: []string{script}})
	}()
	require.Eventually(t, func() bool { return len(r.sem) == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.Run(ctx, Spec{Executable: shell, Args: []string{script}})
	assert.ErrorIs(t, err, ErrBusy)

	<-done
}

func TestRunCallerCancelIsNotProcessFailure(t *testing.T) {
	script := writeScript(t, "sleep 5\n")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	res, err := New(1, time.Minute).RunScript(ctx, shell, script)

	require.ErrorIs(t, err, context.Canceled)
	var procErr *ProcessError
	assert.False(t, errors.As(err, &procErr), "a canceled run is not a failed run")
	assert.Equal(t, -1, res.ExitCode)
}
