package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vinyl_back_end/internal/apperr"
	"vinyl_back_end/internal/utils"
)

// 📜 GET /api/auth/activity?action=&success=&limit=
// Lists the caller's own audit trail, newest first.
func (h *Handler) GetActivity(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	filter := utils.AuditFilter{UserID: userID, Action: c.Query("action")}

	if s := c.Query("success"); s != "" {
		success, err := strconv.ParseBool(s)
		if err != nil {
			respondError(c, apperr.Validation("success must be true or false"))
			return
		}
		filter.Success = &success
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			respondError(c, apperr.Validation("limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	logs, err := h.Auditor.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, apperr.Internal("Failed to fetch activity", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}
