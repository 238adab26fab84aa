package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"vinyl_back_end/internal/apperr"
	"vinyl_back_end/internal/session"
)

const (
	sessionKey = "session"
	userIDKey  = "user_id"
)

// LoadSession resolves the session cookie once per request and attaches the
// session, plus the user id when the session is authenticated. It never
// rejects a request; RequireAuth does that.
func LoadSession(store sessions.Store, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Get(c.Request, name)
		if err != nil {
			log.Printf("⚠️ Session lookup failed: %v", err)
		}
		if sess != nil {
			c.Set(sessionKey, sess)
			if id, ok := session.UserID(sess); ok {
				c.Set(userIDKey, id)
			}
		}
		c.Next()
	}
}

// RequireAuth aborts with 401 unless LoadSession attached a user.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.Unauthorized().Message})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user of the request.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// SetUserID records the user a handler just authenticated, for middleware
// that runs after it.
func SetUserID(c *gin.Context, id int64) {
	c.Set(userIDKey, id)
}

// Session returns the request's session, or nil if LoadSession did not run.
func Session(c *gin.Context) *sessions.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*sessions.Session)
	return sess
}
