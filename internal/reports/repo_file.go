package reports

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"visionreport/internal/shared/storage/jsondoc"
)

// FileStore keeps the report collection in memory and writes the whole
// collection to a JSON document on every mutation.
type FileStore struct {
	path string

	mu      sync.Mutex
	reports []Report

	now   func() time.Time
	newID func() string
}

// OpenFileStore loads path, treating a missing file as an empty collection.
func OpenFileStore(path string) (*FileStore, error) {
	var loaded []Report
	if err := jsondoc.ReadOrEmpty(path, &loaded); err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	return &FileStore{
		path:    path,
		reports: loaded,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}, nil
}

// Path returns the backing document path.
func (s *FileStore) Path() string { return s.path }

// Create assigns an ID and creation time and appends the report, even when the
// same user already has a report for the same image or PDF.
func (s *FileStore) Create(ctx context.Context, report Report) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if strings.TrimSpace(report.UserID) == "" {
		return Report{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report.ID = s.newID()
	report.CreatedAt = s.now()

	next := make([]Report, len(s.reports), len(s.reports)+1)
	copy(next, s.reports)
	next = append(next, report)

	if err := jsondoc.WriteAtomic(s.path, next); err != nil {
		return Report{}, &PersistenceError{Op: "create", Err: err}
	}
	s.reports = next
	return report, nil
}

// Get returns a report by ID.
func (s *FileStore) Get(ctx context.Context, reportID string) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ID == reportID {
			return r, nil
		}
	}
	return Report{}, ErrNotFound
}

// ListByUser returns the user's reports in storage order.
func (s *FileStore) ListByUser(ctx context.Context, userID string) ([]Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Report{}
	for _, r := range s.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Delete removes a report and reports whether it existed. The PDF on disk is
// left alone.
func (s *FileStore) Delete(ctx context.Context, reportID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.reports {
		if r.ID == reportID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	next := make([]Report, 0, len(s.reports)-1)
	next = append(next, s.reports[:idx]...)
	next = append(next, s.reports[idx+1:]...)

	if err := jsondoc.WriteAtomic(s.path, next); err != nil {
		return false, &PersistenceError{Op: "delete", Err: err}
	}
	s.reports = next
	return true, nil
}

var _ Store = (*FileStore)(nil)
