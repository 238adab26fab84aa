package session

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// UserIDKey is the session value holding the authenticated user id.
const UserIDKey = "user_id"

const defaultMaxAge = 86400 * 30

// CookieStore is a sessions.Store whose cookie carries only a signed session
// token; the token's user binding lives server side in the Manager.
type CookieStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options

	manager *Manager
}

var _ sessions.Store = (*CookieStore)(nil)

func NewCookieStore(manager *Manager, secret string, secure bool) *CookieStore {
	hashKey := sha256.Sum256([]byte(secret))
	cs := &CookieStore{
		Codecs: securecookie.CodecsFromPairs(hashKey[:]),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   defaultMaxAge,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		},
		manager: manager,
	}
	cs.MaxAge(cs.Options.MaxAge)
	return cs
}

// Get returns the session cached in the request registry, loading it on
// first use.
func (s *CookieStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie. A missing, tampered or
// expired cookie yields a fresh anonymous session and no error.
func (s *CookieStore) New(r *http.Request, name string) (*sessions.Session, error) {
	sess := sessions.NewSession(s, name)
	opts := *s.Options
	sess.Options = &opts
	sess.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return sess, nil
	}
	var token string
	if err := securecookie.DecodeMulti(name, c.Value, &token, s.Codecs...); err != nil {
		return sess, nil
	}

	userID, ok, err := s.manager.Resolve(r.Context(), token)
	if err != nil {
		return sess, err
	}
	if !ok {
		return sess, nil
	}
	sess.ID = token
	sess.Values[UserIDKey] = userID
	sess.IsNew = false
	return sess, nil
}

// Save writes the session cookie. A negative MaxAge destroys the server side
// session and expires the cookie; an anonymous session writes nothing.
func (s *CookieStore) Save(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	if sess.Options.MaxAge < 0 {
		if err := s.manager.Destroy(r.Context(), sess.ID); err != nil {
			return err
		}
		sess.ID = ""
		http.SetCookie(w, sessions.NewCookie(sess.Name(), "", sess.Options))
		return nil
	}

	userID, ok := UserID(sess)
	if !ok {
		return nil
	}
	if sess.ID == "" {
		token, err := s.manager.Create(r.Context(), userID)
		if err != nil {
			return err
		}
		sess.ID = token
	}

	encoded, err := securecookie.EncodeMulti(sess.Name(), sess.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(sess.Name(), encoded, sess.Options))
	return nil
}

// Login binds sess to userID under a freshly issued token, discarding any
// previous token so a pre-login session id cannot be fixated.
func (s *CookieStore) Login(r *http.Request, w http.ResponseWriter, sess *sessions.Session, userID int64) error {
	if sess.ID != "" {
		if err := s.manager.Destroy(r.Context(), sess.ID); err != nil {
			return err
		}
		sess.ID = ""
	}
	sess.Values[UserIDKey] = userID
	sess.Options.MaxAge = s.Options.MaxAge
	sess.IsNew = false
	return s.Save(r, w, sess)
}

// Logout destroys the server side session and expires the cookie.
func (s *CookieStore) Logout(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	delete(sess.Values, UserIDKey)
	sess.Options.MaxAge = -1
	return s.Save(r, w, sess)
}

// MaxAge sets the cookie lifetime on the store options and the codecs.
func (s *CookieStore) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, codec := range s.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}

// UserID reports the user bound to sess.
func UserID(sess *sessions.Session) (int64, bool) {
	if sess == nil {
		return 0, false
	}
	id, ok := sess.Values[UserIDKey].(int64)
	return id, ok
}

// Manager exposes the server side session registry behind the store.
func (s *CookieStore) Manager() *Manager { return s.manager }
