package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Statements holds the prepared statements for the frequent queries.
// Inside a transaction use tx.StmtContext(ctx, stmt).
type Statements struct {
	// users
	FindUserConflicts *sql.Stmt
	InsertUser        *sql.Stmt
	GetUserLogin      *sql.Stmt
	GetUserByID       *sql.Stmt
	GetUserPassword   *sql.Stmt
	SetUserPassword   *sql.Stmt

	// sessions
	InsertSession         *sql.Stmt
	GetSession            *sql.Stmt
	TouchSession          *sql.Stmt
	DeleteSession         *sql.Stmt
	DeleteExpiredSessions *sql.Stmt
	ListUserSessions      *sql.Stmt
	DeleteOtherSessions   *sql.Stmt

	// cart
	ProductExists     *sql.Stmt
	FindCartItem      *sql.Stmt
	IncrementCartItem *sql.Stmt
	InsertCartItem    *sql.Stmt
	DeleteCartItem    *sql.Stmt
	ClearCart         *sql.Stmt
	ListCart          *sql.Stmt
	CartCount         *sql.Stmt

	// audit
	InsertAuditLog *sql.Stmt

	all []*sql.Stmt
}

func prepareStatements(ctx context.Context, db *sql.DB) (*Statements, error) {
	s := &Statements{}
	queries := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.FindUserConflicts, `SELECT email, username FROM users WHERE email = ? OR username = ?`},
		{&s.InsertUser, `INSERT INTO users (name, email, username, password) VALUES (?, ?, ?, ?)`},
		{&s.GetUserLogin, `SELECT id, password FROM users WHERE username = ?`},
		{&s.GetUserByID, `SELECT id, name, email, username, created_at FROM users WHERE id = ?`},
		{&s.GetUserPassword, `SELECT password FROM users WHERE id = ?`},
		{&s.SetUserPassword, `UPDATE users SET password = ? WHERE id = ?`},

		{&s.InsertSession, `INSERT INTO sessions (token_hash, user_id, created_at, last_seen_at) VALUES (?, ?, ?, ?)`},
		{&s.GetSession, `SELECT user_id, last_seen_at FROM sessions WHERE token_hash = ?`},
		{&s.TouchSession, `UPDATE sessions SET last_seen_at = ? WHERE token_hash = ?`},
		{&s.DeleteSession, `DELETE FROM sessions WHERE token_hash = ?`},
		{&s.DeleteExpiredSessions, `DELETE FROM sessions WHERE last_seen_at < ?`},
		{&s.ListUserSessions, `
			SELECT token_hash, created_at, last_seen_at FROM sessions
			WHERE user_id = ? AND last_seen_at >= ?
			ORDER BY last_seen_at DESC, created_at DESC`},
		{&s.DeleteOtherSessions, `DELETE FROM sessions WHERE user_id = ? AND token_hash <> ?`},

		{&s.ProductExists, `SELECT 1 FROM products WHERE id = ?`},
		{&s.FindCartItem, `SELECT id, quantity FROM cart_items WHERE user_id = ? AND product_id = ? ORDER BY id LIMIT 1`},
		{&s.IncrementCartItem, `UPDATE cart_items SET quantity = quantity + ? WHERE id = ?`},
		{&s.InsertCartItem, `INSERT INTO cart_items (user_id, product_id, quantity) VALUES (?, ?, ?)`},
		{&s.DeleteCartItem, `DELETE FROM cart_items WHERE id = ? AND user_id = ?`},
		{&s.ClearCart, `DELETE FROM cart_items WHERE user_id = ?`},
		{&s.ListCart, `
			SELECT c.id, c.quantity, p.title, p.artist, p.price
			FROM cart_items AS c
			JOIN products AS p ON c.product_id = p.id
			WHERE c.user_id = ?
			ORDER BY c.id ASC`},
		{&s.CartCount, `SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE user_id = ?`},

		{&s.InsertAuditLog, `
			INSERT INTO audit_logs (
				id, user_id, action, resource, resource_id,
				ip_address, user_agent, success, error_msg, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
	}

	for _, q := range queries {
		stmt, err := db.PrepareContext(ctx, q.query)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("prepare %q: %w", q.query, err)
		}
		*q.dst = stmt
		s.all = append(s.all, stmt)
	}
	return s, nil
}

func (s *Statements) Close() {
	if s == nil {
		return
	}
	for _, stmt := range s.all {
		stmt.Close()
	}
	s.all = nil
}
