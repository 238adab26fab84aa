package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vinyl_back_end/internal/apperr"
	"vinyl_back_end/internal/database"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func createTestManager(t *testing.T, ttl time.Duration) (*Manager, *database.Store, *fakeClock) {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	m := NewManager(db, ttl)
	m.now = clock.Now
	return m, db, clock
}

func insertUser(t *testing.T, db *database.Store, username string) int64 {
	t.Helper()
	res, err := db.DB.Exec(`INSERT INTO users (name, email, username, password) VALUES (?, ?, ?, 'x')`,
		username, username+"@example.com", username)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestManager_CreateResolveDestroy(t *testing.T) {
	m, db, _ := createTestManager(t, time.Hour)
	ctx := context.Background()
	uid := insertUser(t, db, "alice")

	token, err := m.Create(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, token, 43) // 32 bytes, unpadded base64url

	got, ok, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uid, got)

	require.NoError(t, m.Destroy(ctx, token))
	_, ok, err = m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	// idempotent
	assert.NoError(t, m.Destroy(ctx, token))
	assert.NoError(t, m.Destroy(ctx, ""))
}

func TestManager_StoresOnlyTokenDigest(t *testing.T) {
	m, db, _ := createTestManager(t, time.Hour)
	ctx := context.Background()
	uid := insertUser(t, db, "alice")

	token, err := m.Create(ctx, uid)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.DB.QueryRow(`SELECT COUNT(*) FROM sessions WHERE token_hash = ?`, token).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, db.DB.QueryRow(`SELECT COUNT(*) FROM sessions WHERE token_hash = ?`, hashToken(token)).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestManager_ResolveUnknownIsAbsent(t *testing.T) {
	m, _, _ := createTestManager(t, time.Hour)

	_, ok, err := m.Resolve(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = m.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_SlidingExpiry(t *testing.T) {
	m, db, clock := createTestManager(t, time.Hour)
	ctx := context.Background()
	uid := insertUser(t, db, "alice")

	token, err := m.Create(ctx, uid)
	require.NoError(t, err)

	// Activity inside the window keeps the session alive.
	for i := 0; i < 3; i++ {
		clock.Advance(50 * time.Minute)
		_, ok, err := m.Resolve(ctx, token)
		require.NoError(t, err)
		require.True(t, ok, "resolve %d", i)
	}

	clock.Advance(61 * time.Minute)
	_, ok, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	var n int
	require.NoError(t, db.DB.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n))
	assert.Zero(t, n, "expired session is deleted on sight")
}

func TestManager_Sweep(t *testing.T) {
	m, db, clock := createTestManager(t, time.Hour)
	ctx := context.Background()
	uid := insertUser(t, db, "alice")

	_, err := m.Create(ctx, uid)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	fresh, err := m.Create(ctx, uid)
	require.NoError(t, err)

	n, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := m.Resolve(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManager_DestroyStorageFault(t *testing.T) {
	m, db, _ := createTestManager(t, time.Hour)
	require.NoError(t, db.Close())

	err := m.Destroy(context.Background(), "token")
	assert.ErrorIs(t, err, apperr.ErrInternal)
}

func TestManager_RunSweeperStopsOnCancel(t *testing.T) {
	m, _, _ := createTestManager(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.RunSweeper(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestManager_ListAndDestroyOthers(t *testing.T) {
	m, db, clock := createTestManager(t, time.Hour)
	ctx := context.Background()
	alice := insertUser(t, db, "alice")
	bob := insertUser(t, db, "bob")

	stale, err := m.Create(ctx, alice)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	laptop, err := m.Create(ctx, alice)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	phone, err := m.Create(ctx, alice)
	require.NoError(t, err)
	bobs, err := m.Create(ctx, bob)
	require.NoError(t, err)

	list, err := m.List(ctx, alice, laptop)
	require.NoError(t, err)
	require.Len(t, list, 2, "expired sessions are not listed")
	assert.False(t, list[0].Current, "most recently used first")
	assert.True(t, list[1].Current)
	assert.Len(t, list[0].ID, 12)
	assert.NotContains(t, phone, list[0].ID)

	n, err := m.DestroyOthers(ctx, alice, laptop)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "the stale row goes too")

	for token, want := range map[string]bool{laptop: true, phone: false, stale: false, bobs: true} {
		_, ok, err := m.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}

	n, err = m.DestroyOthers(ctx, alice, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err = m.List(ctx, alice, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}
