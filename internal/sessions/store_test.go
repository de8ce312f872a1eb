package sessions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()

	token, err := s.Create(Identity{UserID: "u1", Username: "ada"})
	require.NoError(t, err)
	assert.Len(t, token, 64)

	id, ok := s.Lookup(token)
	require.True(t, ok)
	assert.Equal(t, Identity{UserID: "u1", Username: "ada"}, id)

	other, err := s.Create(Identity{UserID: "u1", Username: "ada"})
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	s.Invalidate(token)
	_, ok = s.Lookup(token)
	assert.False(t, ok)

	_, ok = s.Lookup(other)
	assert.True(t, ok, "invalidating one session must not affect others")
}

func TestMemoryStoreRejectsAnonymous(t *testing.T) {
	_, err := NewMemoryStore().Create(Identity{Username: "nobody"})
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestLookupEmptyToken(t *testing.T) {
	_, ok := NewMemoryStore().Lookup("")
	assert.False(t, ok)
}
