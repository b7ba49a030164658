package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ferntrail/scrapbook/internal/errors"
	"github.com/ferntrail/scrapbook/internal/models"
)

// Repository provides CRUD operations for all models.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// newID generates a fresh UUID for a record.
func newID() models.UUID {
	return models.UUID(uuid.New().String())
}

// nullable converts an empty UUID to NULL for insertion.
func nullable(u models.UUID) interface{} {
	if u == "" {
		return nil
	}
	return string(u)
}

// =====================================================
// User Operations
// =====================================================

// CreateUser creates a new user. Usernames are unique; a clash surfaces as
// a conflict error.
func (r *Repository) CreateUser(u *models.User) error {
	u.ID = newID()
	u.CreatedAt = time.Now().Unix()

	query := `
	INSERT INTO users (id, username, email, password_hash, created_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if IsConstraintViolation(err) {
		return apperrors.Wrap(apperrors.ErrConflict, "username already taken", err)
	}
	return err
}

// GetUser retrieves a user by ID.
func (r *Repository) GetUser(id models.UUID) (*models.User, error) {
	return r.scanUser(r.db.QueryRow(
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`, id))
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*models.User, error) {
	return r.scanUser(r.db.QueryRow(
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`, username))
}

func (r *Repository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "user not found", err)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsersExcept returns all users other than the given one, ordered by
// username. The share form uses it as the selectable-recipient set, which
// is how self-sharing is kept impossible.
func (r *Repository) ListUsersExcept(id models.UUID) ([]*models.User, error) {
	rows, err := r.db.Query(
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id != ? ORDER BY username`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// =====================================================
// Session Operations
// =====================================================

// CreateSession stores a session token for a user.
func (r *Repository) CreateSession(token string, userID models.UUID, expiresAt int64) error {
	query := `INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.Exec(query, token, userID, expiresAt, time.Now().Unix())
	return err
}

// GetSessionUser resolves a session token to its user. Expired or unknown
// tokens resolve to a not-found error.
func (r *Repository) GetSessionUser(token string, now int64) (*models.User, error) {
	query := `
	SELECT u.id, u.username, u.email, u.password_hash, u.created_at
	FROM sessions s JOIN users u ON u.id = s.user_id
	WHERE s.token = ? AND s.expires_at > ?
	`
	return r.scanUser(r.db.QueryRow(query, token, now))
}

// DeleteSession removes a session token.
func (r *Repository) DeleteSession(token string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}
