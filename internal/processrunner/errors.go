package processrunner

import (
	"errors"
	"fmt"
	"time"
)

// ErrBusy is returned when the caller's context ends while waiting for a slot.
var ErrBusy = errors.New("process runner busy")

// NotFoundError reports a missing executable, script or input path. It is
// returned before anything is spawned.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return "path not found: " + e.Path }

// ProcessError reports a child that exited with a non-zero code.
type ProcessError struct {
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("process exited with code %d", e.ExitCode)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// TimeoutError reports a child killed after exceeding its timeout.
type TimeoutError struct {
	Timeout time.Duration
	Stderr  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("process timed out after %s", e.Timeout)
}

func lastLine(s string) string {
	end := len(s)
	for end > 0 && (s[end-1] == '\n' || s[end-1] == '\r' || s[end-1] == ' ') {
		end--
	}
	start := end
	for start > 0 && s[start-1] != '\n' {
		start--
	}
	return s[start:end]
}
