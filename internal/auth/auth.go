// Package auth provides session-based authentication: per-request it
// resolves the session cookie to a User, or to nil for anonymous visitors.
package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ferntrail/scrapbook/internal/db"
	apperrors "github.com/ferntrail/scrapbook/internal/errors"
	"github.com/ferntrail/scrapbook/internal/models"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "scrapbook_session"

// SessionTTL is how long a session stays valid.
const SessionTTL = 14 * 24 * time.Hour

// LoginURL is where anonymous visitors are redirected on denied access.
const LoginURL = "/accounts/login/"

// Service implements the authentication provider over the repository.
type Service struct {
	repo *db.Repository
}

// NewService creates an auth Service.
func NewService(repo *db.Repository) *Service {
	return &Service{repo: repo}
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login verifies credentials and opens a session, setting the cookie on w.
// Bad username and bad password are indistinguishable to the caller.
func (s *Service) Login(w http.ResponseWriter, username, password string) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(username)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.New(apperrors.ErrValidation, "invalid username or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.New(apperrors.ErrValidation, "invalid username or password")
	}

	token := uuid.New().String()
	expires := time.Now().Add(SessionTTL)
	if err := s.repo.CreateSession(token, user.ID, expires.Unix()); err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return user, nil
}

// Logout closes the session named by the request cookie, if any.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil // no session to close
	}
	if err := s.repo.DeleteSession(cookie.Value); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return nil
}

// CurrentUser resolves the request's session cookie to a user. Anonymous
// requests (no cookie, unknown or expired session) resolve to nil with no
// error.
func (s *Service) CurrentUser(r *http.Request) (*models.User, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, nil
	}
	user, err := s.repo.GetSessionUser(cookie.Value, time.Now().Unix())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
