// Package session maps opaque session tokens to user ids.
//
// Tokens are 256-bit random values handed to the client; only their SHA-256
// digest is stored, so a leaked sessions table cannot be replayed.
package session

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"github.com/gorilla/securecookie"

	"vinyl_back_end/internal/apperr"
	"vinyl_back_end/internal/database"
)

const tokenBytes = 32

type Manager struct {
	store   *database.Store
	idleTTL time.Duration
	now     func() time.Time
}

func NewManager(store *database.Store, idleTTL time.Duration) *Manager {
	return &Manager{store: store, idleTTL: idleTTL, now: time.Now}
}

// Create starts a session for userID and returns its token.
func (m *Manager) Create(ctx context.Context, userID int64) (string, error) {
	raw := securecookie.GenerateRandomKey(tokenBytes)
	if raw == nil {
		return "", apperr.Internal("Failed to create session", errors.New("random source unavailable"))
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := m.now().Unix()
	if _, err := m.store.Stmt.InsertSession.ExecContext(ctx, hashToken(token), userID, now, now); err != nil {
		return "", apperr.Internal("Failed to create session", err)
	}
	return token, nil
}

// Resolve returns the user behind token. An unknown or expired token is
// reported as ok=false, not as an error. A live session's inactivity window
// restarts.
func (m *Manager) Resolve(ctx context.Context, token string) (int64, bool, error) {
	if token == "" {
		return 0, false, nil
	}
	key := hashToken(token)

	var userID, lastSeen int64
	err := m.store.Stmt.GetSession.QueryRowContext(ctx, key).Scan(&userID, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperr.Internal("Failed to load session", err)
	}

	now := m.now()
	if now.Sub(time.Unix(lastSeen, 0)) > m.idleTTL {
		if _, err := m.store.Stmt.DeleteSession.ExecContext(ctx, key); err != nil {
			log.Printf("⚠️ Failed to delete expired session: %v", err)
		}
		return 0, false, nil
	}

	if _, err := m.store.Stmt.TouchSession.ExecContext(ctx, now.Unix(), key); err != nil {
		log.Printf("⚠️ Failed to refresh session: %v", err)
	}
	return userID, true, nil
}

// Destroy ends the session. Destroying an unknown token is not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := m.store.Stmt.DeleteSession.ExecContext(ctx, hashToken(token)); err != nil {
		return apperr.Internal("Error while trying to logout", err)
	}
	return nil
}

// Info describes one live session of a user. ID is a prefix of the token
// digest, enough to tell sessions apart without exposing anything usable.
type Info struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	Current    bool      `json:"current"`
}

// List returns the unexpired sessions of userID, most recently used first.
// The session holding currentToken is flagged.
func (m *Manager) List(ctx context.Context, userID int64, currentToken string) ([]Info, error) {
	cutoff := m.now().Add(-m.idleTTL).Unix()
	rows, err := m.store.Stmt.ListUserSessions.QueryContext(ctx, userID, cutoff)
	if err != nil {
		return nil, apperr.Internal("Failed to list sessions", err)
	}
	defer rows.Close()

	current := ""
	if currentToken != "" {
		current = hashToken(currentToken)
	}

	out := []Info{}
	for rows.Next() {
		var (
			key                 string
			created, lastSeenAt int64
		)
		if err := rows.Scan(&key, &created, &lastSeenAt); err != nil {
			return nil, apperr.Internal("Failed to list sessions", err)
		}
		out = append(out, Info{
			ID:         key[:infoIDLen],
			CreatedAt:  time.Unix(created, 0),
			LastSeenAt: time.Unix(lastSeenAt, 0),
			Current:    key == current,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("Failed to list sessions", err)
	}
	return out, nil
}

const infoIDLen = 12

// DestroyOthers ends every session of userID except the one holding
// keepToken and returns how many were removed. An empty keepToken ends all.
func (m *Manager) DestroyOthers(ctx context.Context, userID int64, keepToken string) (int64, error) {
	keep := ""
	if keepToken != "" {
		keep = hashToken(keepToken)
	}
	res, err := m.store.Stmt.DeleteOtherSessions.ExecContext(ctx, userID, keep)
	if err != nil {
		return 0, apperr.Internal("Failed to revoke sessions", err)
	}
	return res.RowsAffected()
}

// Sweep deletes every expired session and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	cutoff := m.now().Add(-m.idleTTL).Unix()
	res, err := m.store.Stmt.DeleteExpiredSessions.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, apperr.Internal("Failed to sweep sessions", err)
	}
	return res.RowsAffected()
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				log.Printf("⚠️ Session sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("🧹 Removed %d expired sessions", n)
			}
		}
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
