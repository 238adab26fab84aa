package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesDatabaseAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)

	for _, table := range []string{"users", "products", "cart_items", "sessions", "audit_logs"} {
		var name string
		err := s.DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %q missing", table)
	}

	var version int
	require.NoError(t, s.DB.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 3; i++ {
		s, err := Open(context.Background(), path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_ForeignKeysEnforced(t *testing.T) {
	s := openTestStore(t)

	_, err := s.DB.Exec(`INSERT INTO cart_items (user_id, product_id, quantity) VALUES (42, 42, 1)`)
	assert.Error(t, err)
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO products (title, artist, price, image) VALUES ('A', 'B', 1, 'a.png')`)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO products (title, artist, price, image) VALUES ('C', 'D', 1, 'c.png')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(tx *sql.Tx) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO products (title, artist, price, image) VALUES ('A', 'B', 1, 'a.png')`)
			panic("boom")
		})
	})

	var count int
	require.NoError(t, s.DB.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count))
	assert.Zero(t, count)
}
