package uploads

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidType  = errors.New("invalid upload type")
	ErrInvalidFile  = errors.New("invalid file")
	ErrTooManyFiles = errors.New("too many files")
	ErrNoFiles      = errors.New("no files provided")
)

// ValidationError describes a rejected batch. Err is one of the sentinel
// errors above.
type ValidationError struct {
	Err    error
	File   string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.File != "" {
		msg = fmt.Sprintf("%s %q", msg, e.File)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }
