package users

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"visionreport/internal/shared/storage/jsondoc"
)

// FileRepo stores users in a single JSON document rewritten on every change.
type FileRepo struct {
	path string

	mu    sync.RWMutex
	users []User
}

// OpenFileRepo loads path, treating a missing file as no users.
func OpenFileRepo(path string) (*FileRepo, error) {
	var loaded []User
	if err := jsondoc.ReadOrEmpty(path, &loaded); err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	return &FileRepo{path: path, users: loaded}, nil
}

func (r *FileRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, user.Username) {
			return ErrUsernameTaken
		}
	}

	next := make([]User, len(r.users), len(r.users)+1)
	copy(next, r.users)
	next = append(next, user)
	if err := jsondoc.WriteAtomic(r.path, next); err != nil {
		return fmt.Errorf("persist users: %w", err)
	}
	r.users = next
	return nil
}

func (r *FileRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.find(ctx, func(u User) bool { return u.ID == userID })
}

func (r *FileRepo) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.find(ctx, func(u User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *FileRepo) find(ctx context.Context, match func(User) bool) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

var (
	_ Repo = (*FileRepo)(nil)
	_ Repo = (*MemoryRepo)(nil)
)
