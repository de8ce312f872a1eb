package contacts

import (
	"context"
	"fmt"
	"sync"

	"visionreport/internal/shared/storage/jsondoc"
)

// FileRepo appends submissions to a JSON document.
type FileRepo struct {
	path string

	mu       sync.Mutex
	contacts []Contact
}

// OpenFileRepo loads path, treating a missing file as no submissions.
func OpenFileRepo(path string) (*FileRepo, error) {
	var loaded []Contact
	if err := jsondoc.ReadOrEmpty(path, &loaded); err != nil {
		return nil, fmt.Errorf("open contact store: %w", err)
	}
	return &FileRepo{path: path, contacts: loaded}, nil
}

func (r *FileRepo) Create(ctx context.Context, c Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]Contact, len(r.contacts), len(r.contacts)+1)
	copy(next, r.contacts)
	next = append(next, c)
	if err := jsondoc.WriteAtomic(r.path, next); err != nil {
		return fmt.Errorf("persist contacts: %w", err)
	}
	r.contacts = next
	return nil
}

// Count returns the number of stored submissions.
func (r *FileRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contacts)
}
