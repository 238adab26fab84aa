package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vinyl_back_end/internal/apperr"
)

// 🔒 POST /api/auth/change-password
// Every other session of the user is signed out; the caller's stays.
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var input struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperr.Validation("All fields are required"))
		return
	}

	ctx := c.Request.Context()
	if err := h.Users.ChangePassword(ctx, userID, input.CurrentPassword, input.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	revoked, err := h.Sessions.Manager().DestroyOthers(ctx, userID, h.currentToken(c))
	if err != nil {
		// The password is already changed; stale sessions still expire on idle.
		log.Printf("⚠️ Failed to revoke sessions of user %d: %v", userID, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed", "revokedSessions": revoked})
}

// 📱 GET /api/auth/sessions
func (h *Handler) ListSessions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	list, err := h.Sessions.Manager().List(c.Request.Context(), userID, h.currentToken(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": list, "count": len(list)})
}

// 🧹 DELETE /api/auth/sessions
func (h *Handler) RevokeOtherSessions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	revoked, err := h.Sessions.Manager().DestroyOthers(c.Request.Context(), userID, h.currentToken(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Other sessions revoked", "revokedSessions": revoked})
}

func (h *Handler) currentToken(c *gin.Context) string {
	sess, err := h.session(c)
	if err != nil {
		return ""
	}
	return sess.ID
}
