package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "session_id"

func newRequest(cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func responseCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", cookieName)
	return nil
}

func TestCookieStore_AnonymousWritesNothing(t *testing.T) {
	m, _, _ := createTestManager(t, time.Hour)
	store := NewCookieStore(m, "secret", false)

	r := newRequest()
	sess, err := store.Get(r, cookieName)
	require.NoError(t, err)
	assert.True(t, sess.IsNew)
	_, ok := UserID(sess)
	assert.False(t, ok)

	w := httptest.NewRecorder()
	require.NoError(t, sess.Save(r, w))
	assert.Empty(t, w.Result().Cookies())
}

func TestCookieStore_LoginRoundTrip(t *testing.T) {
	m, db, _ := createTestManager(t, time.Hour)
	store := NewCookieStore(m, "secret", true)
	uid := insertUser(t, db, "alice")

	r := newRequest()
	sess, err := store.Get(r, cookieName)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, store.Login(r, w, sess, uid))

	c := responseCookie(t, w)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.NotContains(t, c.Value, sess.ID, "cookie carries the signed token, not the raw one")

	next := newRequest(c)
	loaded, err := store.Get(next, cookieName)
	require.NoError(t, err)
	assert.False(t, loaded.IsNew)
	got, ok := UserID(loaded)
	require.True(t, ok)
	assert.Equal(t, uid, got)
}

func TestCookieStore_LoginRotatesToken(t *testing.T) {
	m, db, _ := createTestManager(t, time.Hour)
	store := NewCookieStore(m, "secret", false)
	uid := insertUser(t, db, "alice")

	r := newRequest()
	sess, _ := store.Get(r, cookieName)
	w := httptest.NewRecorder()
	require.NoError(t, store.Login(r, w, sess, uid))
	first := responseCookie(t, w)
	oldToken := sess.ID

	r2 := newRequest(first)
	sess2, err := store.Get(r2, cookieName)
	require.NoError(t, err)
	w2 := httptest.NewRecorder()
	require.NoError(t, store.Login(r2, w2, sess2, uid))

	assert.NotEqual(t, oldToken, sess2.ID)
	_, ok, err := m.Resolve(r2.Context(), oldToken)
	require.NoError(t, err)
	assert.False(t, ok, "previous token is revoked")
}

func TestCookieStore_TamperedCookieIsAnonymous(t *testing.T) {
	m, db, _ := createTestManager(t, time.Hour)
	uid := insertUser(t, db, "alice")

	signer := NewCookieStore(m, "secret", false)
	r := newRequest()
	sess, _ := signer.Get(r, cookieName)
	w := httptest.NewRecorder()
	require.NoError(t, signer.Login(r, w, sess, uid))
	c := responseCookie(t, w)

	other := NewCookieStore(m, "another-secret", false)
	loaded, err := other.Get(newRequest(c), cookieName)
	require.NoError(t, err)
	assert.True(t, loaded.IsNew)

	garbage := &http.Cookie{Name: cookieName, Value: "not-a-valid-cookie"}
	loaded, err = signer.Get(newRequest(garbage), cookieName)
	require.NoError(t, err)
	_, ok := UserID(loaded)
	assert.False(t, ok)
}

func TestCookieStore_Logout(t *testing.T) {
	m, db, _ := createTestManager(t, time.Hour)
	store := NewCookieStore(m, "secret", false)
	uid := insertUser(t, db, "alice")

	r := newRequest()
	sess, _ := store.Get(r, cookieName)
	w := httptest.NewRecorder()
	require.NoError(t, store.Login(r, w, sess, uid))
	c := responseCookie(t, w)
	token := sess.ID

	r2 := newRequest(c)
	sess2, err := store.Get(r2, cookieName)
	require.NoError(t, err)
	w2 := httptest.NewRecorder()
	require.NoError(t, store.Logout(r2, w2, sess2))

	cleared := responseCookie(t, w2)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	_, ok, err := m.Resolve(r2.Context(), token)
	require.NoError(t, err)
	assert.False(t, ok)

	// The old cookie no longer authenticates.
	again, err := store.Get(newRequest(c), cookieName)
	require.NoError(t, err)
	_, ok = UserID(again)
	assert.False(t, ok)
}

func TestCookieStore_ExpiredSessionIsAnonymous(t *testing.T) {
	m, db, clock := createTestManager(t, time.Hour)
	store := NewCookieStore(m, "secret", false)
	uid := insertUser(t, db, "alice")

	r := newRequest()
	sess, _ := store.Get(r, cookieName)
	w := httptest.NewRecorder()
	require.NoError(t, store.Login(r, w, sess, uid))
	c := responseCookie(t, w)

	clock.Advance(2 * time.Hour)
	loaded, err := store.Get(newRequest(c), cookieName)
	require.NoError(t, err)
	_, ok := UserID(loaded)
	assert.False(t, ok)
}
