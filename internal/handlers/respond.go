package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vinyl_back_end/internal/apperr"
	"vinyl_back_end/internal/middleware"
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindInvalidCredentials:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError answers {error: message}. Internal causes are logged here and
// never sent to the client.
func respondError(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Internal("Internal server error", err)
	}
	if e.Kind == apperr.KindInternal {
		log.Printf("❌ %s %s: %v", c.Request.Method, c.FullPath(), err)
		if e.Message == "" {
			e = apperr.Internal("Internal server error", err)
		}
	}

	middleware.SetErrorMessage(c, e.Message)
	c.JSON(statusFor(e.Kind), gin.H{"error": e.Message})
}
