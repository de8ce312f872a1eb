package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"visionreport/internal/sessions"
	"visionreport/internal/shared/server/respond"
)

const (
	userIDKey       = "userId"
	usernameKey     = "username"
	sessionTokenKey = "sessionToken"
)

// Session resolves the caller from the session cookie or a bearer token and
// stores the identity in context. Unknown tokens leave the request anonymous;
// routes that need a user add RequireAuth.
func Session(store sessions.Store, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if authHeader := strings.TrimSpace(c.GetHeader("Authorization")); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}
			token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		} else if cookie, err := c.Cookie(cookieName); err == nil {
			token = strings.TrimSpace(cookie)
		}

		if token != "" {
			if identity, ok := store.Lookup(token); ok {
				c.Set(userIDKey, identity.UserID)
				c.Set(usernameKey, identity.Username)
				c.Set(sessionTokenKey, token)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a resolved identity.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "login required", nil)
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the session middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UsernameFromContext fetches the username set by the session middleware.
func UsernameFromContext(c *gin.Context) string {
	return stringFromContext(c, usernameKey)
}

// SessionTokenFromContext returns the token the caller authenticated with.
func SessionTokenFromContext(c *gin.Context) string {
	return stringFromContext(c, sessionTokenKey)
}

// IdentityFromContext returns the caller's identity, if any.
func IdentityFromContext(c *gin.Context) (sessions.Identity, bool) {
	id := UserIDFromContext(c)
	if id == "" {
		return sessions.Identity{}, false
	}
	return sessions.Identity{UserID: id, Username: UsernameFromContext(c)}, true
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
