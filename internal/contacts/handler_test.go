package contacts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitContact(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "contacts.json")
	repo, err := OpenFileRepo(path)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(&Service{Repo: repo}).RegisterRoutes(r.Group("/api/v1"))

	post := func(body any) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(gin.H{"name": "Ada", "email": "ada@example.com", "subject": "Hi", "message": "Hello there"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = post(gin.H{"name": "Ada", "email": "nope", "message": "Hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = post(gin.H{"name": "", "email": "ada@example.com", "message": "Hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = post(gin.H{"name": "Ada", "email": "ada@example.com", "message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	reopened, err := OpenFileRepo(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Count())
}

func TestFileRepoCanceled(t *testing.T) {
	repo, err := OpenFileRepo(filepath.Join(t.TempDir(), "contacts.json"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, repo.Create(ctx, Contact{}), context.Canceled)
}
