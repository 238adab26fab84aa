package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"vinyl_back_end/internal/utils"
)

// AuditAuth records action in the audit log once the handler has answered.
// Responses below 400 are logged as successes against the user the handler
// authenticated; others as failures carrying the response error message.
func AuditAuth(auditor *utils.Auditor, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Capture the submitted username without consuming the body
		var username string
		if c.Request.Body != nil {
			bodyBytes, err := io.ReadAll(c.Request.Body)
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
				var input struct {
					Username string `json:"username"`
				}
				if json.Unmarshal(bodyBytes, &input) == nil {
					username = input.Username
				}
			}
		}

		c.Next()

		userID, hasUser := UserID(c)
		resourceID := username
		if resourceID == "" && hasUser {
			resourceID = strconv.FormatInt(userID, 10)
		}

		if c.Writer.Status() < 400 {
			var uid *int64
			if hasUser {
				uid = &userID
			}
			auditor.LogAction(c, action, resource, resourceID, uid)
			return
		}

		msg, _ := c.Get(errorMessageKey)
		text, _ := msg.(string)
		auditor.LogFailedAction(c, action, resource, resourceID, text)
	}
}

const errorMessageKey = "error_message"

// SetErrorMessage exposes a client-facing error message to middleware that
// runs after the handler.
func SetErrorMessage(c *gin.Context, msg string) {
	c.Set(errorMessageKey, msg)
}
