package utils

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vinyl_back_end/internal/database"
	"vinyl_back_end/internal/models"
)

// Auditor records security-relevant actions in audit_logs. Failures are
// logged and swallowed: auditing never fails the request it describes.
type Auditor struct {
	store *database.Store
	now   func() time.Time
}

func NewAuditor(store *database.Store) *Auditor {
	return &Auditor{store: store, now: time.Now}
}

// LogAction records a successful action performed during request c.
func (a *Auditor) LogAction(c *gin.Context, action, resource, resourceID string, userID *int64) {
	a.record(c, action, resource, resourceID, userID, true, "")
}

// LogFailedAction records a rejected or failed action.
func (a *Auditor) LogFailedAction(c *gin.Context, action, resource, resourceID, errorMsg string) {
	a.record(c, action, resource, resourceID, nil, false, errorMsg)
}

func (a *Auditor) record(c *gin.Context, action, resource, resourceID string, userID *int64, success bool, errorMsg string) {
	if a == nil {
		return
	}
	entry := models.AuditLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
		Success:    success,
		ErrorMsg:   errorMsg,
		Timestamp:  a.now(),
	}
	if err := a.Write(c.Request.Context(), entry); err != nil {
		log.Printf("❌ Failed to write audit log (%s): %v", action, err)
	}
}

func (a *Auditor) Write(ctx context.Context, entry models.AuditLog) error {
	var userID sql.NullInt64
	if entry.UserID != nil {
		userID = sql.NullInt64{Int64: *entry.UserID, Valid: true}
	}
	_, err := a.store.Stmt.InsertAuditLog.ExecContext(ctx,
		entry.ID, userID, entry.Action, entry.Resource, entry.ResourceID,
		entry.IPAddress, entry.UserAgent, entry.Success, entry.ErrorMsg,
		entry.Timestamp.Unix(),
	)
	return err
}

// Audit actions
const (
	ACTION_USER_REGISTER = "user.register"
	ACTION_LOGIN         = "auth.login"
	ACTION_LOGOUT        = "auth.logout"
	ACTION_PASSWORD      = "auth.password_change"
	ACTION_REVOKE        = "auth.sessions_revoke"
)

// Audit resources
const (
	RESOURCE_USER = "user"
	RESOURCE_AUTH = "auth"
)

// AuditFilter narrows List. Zero fields do not filter.
type AuditFilter struct {
	UserID  int64
	Action  string
	Success *bool
	Limit   int
}

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// List returns matching entries, newest first.
func (a *Auditor) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, error) {
	query := `SELECT id, user_id, action, resource, COALESCE(resource_id, ''),
		COALESCE(ip_address, ''), COALESCE(user_agent, ''), success,
		COALESCE(error_msg, ''), created_at FROM audit_logs`

	var (
		conditions []string
		args       []any
	)
	if f.UserID != 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, f.Action)
	}
	if f.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *f.Success)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := a.store.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var (
			entry     models.AuditLog
			userID    sql.NullInt64
			createdAt int64
		)
		if err := rows.Scan(&entry.ID, &userID, &entry.Action, &entry.Resource, &entry.ResourceID,
			&entry.IPAddress, &entry.UserAgent, &entry.Success, &entry.ErrorMsg, &createdAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			id := userID.Int64
			entry.UserID = &id
		}
		entry.Timestamp = time.Unix(createdAt, 0)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
