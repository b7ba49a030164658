package db

import (
	"database/sql"
	"time"

	apperrors "github.com/ferntrail/scrapbook/internal/errors"
	"github.com/ferntrail/scrapbook/internal/models"
	"github.com/ferntrail/scrapbook/internal/slug"
)

const scrapbookColumns = `id, title, slug, image, content, description, status, author_id, created_at, updated_at`

// CreateScrapbook creates a new scrapbook. The slug is derived from the
// title once, with a random suffix on collision; the unique index is the
// backstop for the residual race, retried once with a fresh suffix.
func (r *Repository) CreateScrapbook(s *models.Scrapbook) error {
	s.Normalize()
	now := time.Now().Unix()
	s.ID = newID()
	s.CreatedAt = now
	s.UpdatedAt = now

	if s.Slug == "" {
		generated, err := slug.Unique(s.Title, r.ScrapbookSlugExists)
		if err != nil {
			return err
		}
		s.Slug = generated
	}

	query := `
	INSERT INTO scrapbooks (` + scrapbookColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := func() []interface{} {
		return []interface{}{s.ID, s.Title, s.Slug, s.Image, s.Content, s.Description,
			int(s.Status), s.AuthorID, s.CreatedAt, s.UpdatedAt}
	}
	_, err := r.db.Exec(query, args()...)
	if IsConstraintViolation(err) {
		// lost the slug race: retry once with a fresh suffix
		s.Slug = slug.WithSuffix(slug.Make(s.Title))
		_, err = r.db.Exec(query, args()...)
		if IsConstraintViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "scrapbook slug conflict", err)
		}
	}
	return err
}

// GetScrapbook retrieves a scrapbook by ID.
func (r *Repository) GetScrapbook(id models.UUID) (*models.Scrapbook, error) {
	return r.scanScrapbook(r.db.QueryRow(
		`SELECT `+scrapbookColumns+` FROM scrapbooks WHERE id = ?`, id))
}

// GetScrapbookBySlug retrieves a scrapbook by slug.
func (r *Repository) GetScrapbookBySlug(s string) (*models.Scrapbook, error) {
	return r.scanScrapbook(r.db.QueryRow(
		`SELECT `+scrapbookColumns+` FROM scrapbooks WHERE slug = ?`, s))
}

func (r *Repository) scanScrapbook(row *sql.Row) (*models.Scrapbook, error) {
	var s models.Scrapbook
	var status int
	err := row.Scan(&s.ID, &s.Title, &s.Slug, &s.Image, &s.Content, &s.Description,
		&status, &s.AuthorID, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "scrapbook not found", err)
	}
	if err != nil {
		return nil, err
	}
	s.Status = models.Status(status)
	return &s, nil
}

// UpdateScrapbook updates title, content, description, status and image.
// The slug is generated once at creation and never regenerated.
func (r *Repository) UpdateScrapbook(s *models.Scrapbook) error {
	s.Normalize()
	s.Touch()
	query := `
	UPDATE scrapbooks
	SET title = ?, content = ?, description = ?, status = ?, image = ?, updated_at = ?
	WHERE id = ?
	`
	result, err := r.db.Exec(query, s.Title, s.Content, s.Description,
		int(s.Status), s.Image, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.New(apperrors.ErrNotFound, "scrapbook not found")
	}
	return nil
}

// DeleteScrapbook removes a scrapbook together with its posts and every
// shared-access grant referencing either, in one transaction.
func (r *Repository) DeleteScrapbook(id models.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM shared_access WHERE scrapbook_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM shared_access WHERE post_id IN (SELECT id FROM posts WHERE scrapbook_id = ?)`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM posts WHERE scrapbook_id = ?`, id); err != nil {
		return err
	}
	result, err := tx.Exec(`DELETE FROM scrapbooks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.New(apperrors.ErrNotFound, "scrapbook not found")
	}
	return tx.Commit()
}

// ScrapbookSlugExists reports whether any scrapbook already uses the slug.
func (r *Repository) ScrapbookSlugExists(s string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM scrapbooks WHERE slug = ?`, s).Scan(&n)
	return n > 0, err
}

// ListPublicScrapbooks returns public scrapbooks newest-first.
func (r *Repository) ListPublicScrapbooks(limit, offset int) ([]*models.Scrapbook, error) {
	return r.listScrapbooks(
		`SELECT `+scrapbookColumns+` FROM scrapbooks WHERE status = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		int(models.StatusPublic), limit, offset)
}

// CountPublicScrapbooks returns the number of public scrapbooks.
func (r *Repository) CountPublicScrapbooks() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM scrapbooks WHERE status = ?`,
		int(models.StatusPublic)).Scan(&n)
	return n, err
}

// ListScrapbooksByAuthor returns a user's own scrapbooks newest-first.
func (r *Repository) ListScrapbooksByAuthor(authorID models.UUID, limit, offset int) ([]*models.Scrapbook, error) {
	return r.listScrapbooks(
		`SELECT `+scrapbookColumns+` FROM scrapbooks WHERE author_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		authorID, limit, offset)
}

// CountScrapbooksByAuthor returns the number of scrapbooks owned by a user.
func (r *Repository) CountScrapbooksByAuthor(authorID models.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM scrapbooks WHERE author_id = ?`, authorID).Scan(&n)
	return n, err
}

// ListSharedScrapbooks returns scrapbooks shared with a user, distinct by
// scrapbook, newest-first.
func (r *Repository) ListSharedScrapbooks(userID models.UUID, limit, offset int) ([]*models.Scrapbook, error) {
	return r.listScrapbooks(
		`SELECT DISTINCT s.id, s.title, s.slug, s.image, s.content, s.description,
		        s.status, s.author_id, s.created_at, s.updated_at
		 FROM scrapbooks s
		 JOIN shared_access sa ON sa.scrapbook_id = s.id
		 WHERE sa.user_id = ?
		 ORDER BY s.created_at DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
}

// CountSharedScrapbooks returns the number of distinct scrapbooks shared
// with a user.
func (r *Repository) CountSharedScrapbooks(userID models.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(DISTINCT scrapbook_id) FROM shared_access
		 WHERE user_id = ? AND scrapbook_id IS NOT NULL`, userID).Scan(&n)
	return n, err
}

func (r *Repository) listScrapbooks(query string, args ...interface{}) ([]*models.Scrapbook, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*models.Scrapbook
	for rows.Next() {
		var s models.Scrapbook
		var status int
		err := rows.Scan(&s.ID, &s.Title, &s.Slug, &s.Image, &s.Content, &s.Description,
			&status, &s.AuthorID, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, err
		}
		s.Status = models.Status(status)
		books = append(books, &s)
	}
	return books, rows.Err()
}
