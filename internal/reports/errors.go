package reports

import "errors"

var (
	ErrNotFound     = errors.New("report not found")
	ErrInvalidInput = errors.New("invalid report")
)

// PersistenceError reports a failed write of the backing document. The
// in-memory collection is left as it was before the call.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persist reports (" + e.Op + "): " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
