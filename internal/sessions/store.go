// Package sessions maps opaque session tokens to identities for the life of
// the process. There is no expiry; a lookup miss means "not authenticated".
package sessions

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidIdentity is returned when creating a session without a user.
var ErrInvalidIdentity = errors.New("identity requires a user id")

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Store is the session capability consumed by handlers and the upload pipeline.
type Store interface {
	Create(identity Identity) (string, error)
	Lookup(token string) (Identity, bool)
	Invalidate(token string)
}

// MemoryStore keeps sessions in a map and is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Identity
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Identity)}
}

// Create issues a new random token for identity.
func (s *MemoryStore) Create(identity Identity) (string, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return "", ErrInvalidIdentity
	}
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = identity
	return token, nil
}

// Lookup returns the identity bound to token.
func (s *MemoryStore) Lookup(token string) (Identity, bool) {
	if token == "" {
		return Identity{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[token]
	return id, ok
}

// Invalidate forgets token. Unknown tokens are ignored.
func (s *MemoryStore) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var _ Store = (*MemoryStore)(nil)
