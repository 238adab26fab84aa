package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"vinyl_back_end/internal/apperr"
	"vinyl_back_end/internal/auth"
	"vinyl_back_end/internal/middleware"
)

// 🟢 POST /api/auth/register
// Registering also logs the new user in.
func (h *Handler) Register(c *gin.Context) {
	var input auth.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperr.Validation("All fields are required"))
		return
	}

	userID, err := h.Users.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("✅ New user registered with ID %d", userID)

	if err := h.startSession(c, userID); err != nil {
		respondError(c, err)
		return
	}
	middleware.SetUserID(c, userID)

	c.JSON(http.StatusCreated, gin.H{"message": "User registered"})
}

// 🔑 POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperr.Validation("All fields are required"))
		return
	}

	userID, err := h.Users.Authenticate(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.startSession(c, userID); err != nil {
		respondError(c, err)
		return
	}
	middleware.SetUserID(c, userID)

	c.JSON(http.StatusOK, gin.H{"message": "Logged in"})
}

// 🚪 GET /api/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	sess, err := h.session(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Sessions.Logout(c.Request, c.Writer, sess); err != nil {
		respondError(c, apperr.Internal("Error while trying to logout", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// 👤 GET /api/auth/me
func (h *Handler) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"isLoggedIn": false})
		return
	}

	user, err := h.Users.User(c.Request.Context(), userID)
	if errors.Is(err, apperr.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"isLoggedIn": false})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"isLoggedIn": true, "name": user.Name})
}

func (h *Handler) startSession(c *gin.Context, userID int64) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := h.Sessions.Login(c.Request, c.Writer, sess, userID); err != nil {
		return apperr.Internal("Failed to create session", err)
	}
	return nil
}

func (h *Handler) session(c *gin.Context) (*sessions.Session, error) {
	if sess := middleware.Session(c); sess != nil {
		return sess, nil
	}
	sess, err := h.Sessions.Get(c.Request, h.CookieName)
	if err != nil {
		return nil, apperr.Internal("Failed to load session", err)
	}
	return sess, nil
}
