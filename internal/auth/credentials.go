// Package auth persists user identities and verifies login credentials.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mattn/go-sqlite3"

	"vinyl_back_end/internal/apperr"
	"vinyl_back_end/internal/database"
	"vinyl_back_end/internal/models"
)

// MaxPasswordBytes is the longest password bcrypt accepts; it applies to
// every algorithm so switching PASSWORD_ALGO never strands a user.
const MaxPasswordBytes = 72

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,20}$`)

// Hasher produces and checks password digests.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Store struct {
	db       *database.Store
	hasher   Hasher
	validate *validator.Validate

	dummyOnce   sync.Once
	dummyDigest string
}

func NewStore(db *database.Store, hasher Hasher) *Store {
	return &Store{db: db, hasher: hasher, validate: validator.New()}
}

// Register validates and persists a new user and returns its id.
func (s *Store) Register(ctx context.Context, in RegisterInput) (int64, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	password := in.Password

	if name == "" || email == "" || username == "" || password == "" {
		return 0, apperr.Validation("All fields are required")
	}
	if !usernamePattern.MatchString(username) {
		return 0, apperr.Validation("Username may only contain letters, numbers, hyphen, and underscore")
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return 0, apperr.Validation("Invalid email format")
	}
	if err := checkPasswordLength(password); err != nil {
		return 0, err
	}

	if err := s.checkConflicts(ctx, email, username); err != nil {
		return 0, err
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return 0, apperr.Internal("Registration failed. Please try again.", err)
	}

	res, err := s.db.Stmt.InsertUser.ExecContext(ctx, name, email, username, digest)
	if err != nil {
		// Lost a race with a concurrent registration.
		if msg, ok := uniqueViolation(err); ok {
			return 0, apperr.Conflict(msg)
		}
		return 0, apperr.Internal("Registration failed. Please try again.", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, apperr.Internal("Registration failed. Please try again.", err)
	}
	return id, nil
}

// checkConflicts reports an email collision before a username collision,
// whichever rows the lookup returns them in.
func (s *Store) checkConflicts(ctx context.Context, email, username string) error {
	rows, err := s.db.Stmt.FindUserConflicts.QueryContext(ctx, email, username)
	if err != nil {
		return apperr.Internal("Registration failed. Please try again.", err)
	}
	defer rows.Close()

	var emailTaken, usernameTaken bool
	for rows.Next() {
		var e, u string
		if err := rows.Scan(&e, &u); err != nil {
			return apperr.Internal("Registration failed. Please try again.", err)
		}
		emailTaken = emailTaken || e == email
		usernameTaken = usernameTaken || u == username
	}
	if err := rows.Err(); err != nil {
		return apperr.Internal("Registration failed. Please try again.", err)
	}

	switch {
	case emailTaken:
		return apperr.Conflict("Email is already registered, please login")
	case usernameTaken:
		return apperr.Conflict("Username is already registered, please login")
	}
	return nil
}

func uniqueViolation(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return "", false
	}
	if strings.Contains(sqliteErr.Error(), "users.email") {
		return "Email is already registered, please login", true
	}
	return "Username is already registered, please login", true
}

// Authenticate returns the id of the user whose credentials match. An unknown
// username and a wrong password yield the same error.
func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, apperr.Validation("All fields are required")
	}

	var (
		id     int64
		digest string
	)
	err := s.db.Stmt.GetUserLogin.QueryRowContext(ctx, username).Scan(&id, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		// Burn a comparable amount of time so response latency does not
		// reveal which usernames exist.
		_, _ = s.hasher.Verify(password, s.dummy())
		return 0, apperr.InvalidCredentials()
	}
	if err != nil {
		return 0, apperr.Internal("Login failed. Please try again.", err)
	}

	ok, err := s.hasher.Verify(password, digest)
	if err != nil {
		return 0, apperr.Internal("Login failed. Please try again.", err)
	}
	if !ok {
		return 0, apperr.InvalidCredentials()
	}
	return id, nil
}

func (s *Store) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyDigest
}

// User loads the profile of user id.
func (s *Store) User(ctx context.Context, id int64) (models.User, error) {
	var (
		u         models.User
		name      sql.NullString
		createdAt sql.NullTime
	)
	err := s.db.Stmt.GetUserByID.QueryRowContext(ctx, id).Scan(&u.ID, &name, &u.Email, &u.Username, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return models.User{}, apperr.Internal("Internal server error", err)
	}
	u.Name = name.String
	u.CreatedAt = createdAt.Time
	return u, nil
}

// ChangePassword replaces the digest of user id after checking the current
// password.
func (s *Store) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("All fields are required")
	}
	if current == next {
		return apperr.Validation("New password must differ from the current one")
	}
	if err := checkPasswordLength(next); err != nil {
		return err
	}

	var digest string
	err := s.db.Stmt.GetUserPassword.QueryRowContext(ctx, id).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return apperr.Internal("Failed to change password", err)
	}

	ok, err := s.hasher.Verify(current, digest)
	if err != nil {
		return apperr.Internal("Failed to change password", err)
	}
	if !ok {
		return apperr.Validation("Current password is incorrect")
	}

	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return apperr.Internal("Failed to change password", err)
	}
	if _, err := s.db.Stmt.SetUserPassword.ExecContext(ctx, hashed, id); err != nil {
		return apperr.Internal("Failed to change password", err)
	}
	return nil
}

func checkPasswordLength(password string) error {
	if len(password) > MaxPasswordBytes {
		return apperr.Validation(fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}
