package db

import (
	"database/sql"
	"time"

	apperrors "github.com/ferntrail/scrapbook/internal/errors"
	"github.com/ferntrail/scrapbook/internal/models"
	"github.com/ferntrail/scrapbook/internal/slug"
)

const postColumns = `id, scrapbook_id, author_id, title, slug, image, content, status, approved, created_at, updated_at`

// PostFilter selects which posts of a scrapbook a listing returns. The
// visibility policy is applied to lists as a query filter, so each caller
// picks the filter matching what the requester may see.
type PostFilter int

const (
	// PostsAll returns every post; used for the author's own view.
	PostsAll PostFilter = iota
	// PostsNonDraft excludes drafts; used for grant holders.
	PostsNonDraft
	// PostsPublicOnly returns public posts; used for everyone else.
	PostsPublicOnly
)

func (f PostFilter) condition() string {
	switch f {
	case PostsNonDraft:
		return " AND status != 0"
	case PostsPublicOnly:
		return " AND status = 2"
	}
	return ""
}

// CreatePost creates a new post inside a scrapbook. Slug handling follows
// CreateScrapbook: derived once, random suffix on collision, unique index
// backstop with a single retry.
func (r *Repository) CreatePost(p *models.Post) error {
	p.Normalize()
	now := time.Now().Unix()
	p.ID = newID()
	p.CreatedAt = now
	p.UpdatedAt = now

	if p.Slug == "" {
		generated, err := slug.Unique(p.Title, r.PostSlugExists)
		if err != nil {
			return err
		}
		p.Slug = generated
	}

	query := `
	INSERT INTO posts (` + postColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := func() []interface{} {
		return []interface{}{p.ID, p.ScrapbookID, p.AuthorID, p.Title, p.Slug, p.Image,
			p.Content, int(p.Status), p.Approved, p.CreatedAt, p.UpdatedAt}
	}
	_, err := r.db.Exec(query, args()...)
	if IsConstraintViolation(err) {
		p.Slug = slug.WithSuffix(slug.Make(p.Title))
		_, err = r.db.Exec(query, args()...)
		if IsConstraintViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "post slug conflict", err)
		}
	}
	return err
}

// GetPost retrieves a post by ID.
func (r *Repository) GetPost(id models.UUID) (*models.Post, error) {
	return r.scanPost(r.db.QueryRow(
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
}

// GetPostBySlugs retrieves a post by its slug under a scrapbook slug.
// A post slug that exists under a different scrapbook is a not-found.
func (r *Repository) GetPostBySlugs(scrapbookSlug, postSlug string) (*models.Post, error) {
	query := `
	SELECT p.id, p.scrapbook_id, p.author_id, p.title, p.slug, p.image, p.content,
	       p.status, p.approved, p.created_at, p.updated_at
	FROM posts p JOIN scrapbooks s ON s.id = p.scrapbook_id
	WHERE p.slug = ? AND s.slug = ?
	`
	return r.scanPost(r.db.QueryRow(query, postSlug, scrapbookSlug))
}

// GetPostInScrapbook retrieves a post by ID, verifying it belongs to the
// scrapbook with the given slug.
func (r *Repository) GetPostInScrapbook(id models.UUID, scrapbookSlug string) (*models.Post, error) {
	query := `
	SELECT p.id, p.scrapbook_id, p.author_id, p.title, p.slug, p.image, p.content,
	       p.status, p.approved, p.created_at, p.updated_at
	FROM posts p JOIN scrapbooks s ON s.id = p.scrapbook_id
	WHERE p.id = ? AND s.slug = ?
	`
	return r.scanPost(r.db.QueryRow(query, id, scrapbookSlug))
}

func (r *Repository) scanPost(row *sql.Row) (*models.Post, error) {
	var p models.Post
	var status int
	err := row.Scan(&p.ID, &p.ScrapbookID, &p.AuthorID, &p.Title, &p.Slug, &p.Image,
		&p.Content, &status, &p.Approved, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "post not found", err)
	}
	if err != nil {
		return nil, err
	}
	p.Status = models.Status(status)
	return &p, nil
}

// UpdatePost updates title, content, status and image. Author, scrapbook
// and slug are fixed after creation.
func (r *Repository) UpdatePost(p *models.Post) error {
	p.Normalize()
	p.Touch()
	query := `
	UPDATE posts
	SET title = ?, content = ?, status = ?, image = ?, approved = ?, updated_at = ?
	WHERE id = ?
	`
	result, err := r.db.Exec(query, p.Title, p.Content, int(p.Status), p.Image,
		p.Approved, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.New(apperrors.ErrNotFound, "post not found")
	}
	return nil
}

// DeletePost removes a post and any shared-access grants referencing it,
// in one transaction.
func (r *Repository) DeletePost(id models.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM shared_access WHERE post_id = ?`, id); err != nil {
		return err
	}
	result, err := tx.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperrors.New(apperrors.ErrNotFound, "post not found")
	}
	return tx.Commit()
}

// PostSlugExists reports whether any post already uses the slug.
func (r *Repository) PostSlugExists(s string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM posts WHERE slug = ?`, s).Scan(&n)
	return n > 0, err
}

// ListPosts returns a scrapbook's posts newest-first, restricted by filter.
// A negative limit returns all matching posts.
func (r *Repository) ListPosts(scrapbookID models.UUID, filter PostFilter, limit, offset int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE scrapbook_id = ?` +
		filter.condition() +
		` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Query(query, scrapbookID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var p models.Post
		var status int
		err := rows.Scan(&p.ID, &p.ScrapbookID, &p.AuthorID, &p.Title, &p.Slug, &p.Image,
			&p.Content, &status, &p.Approved, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		p.Status = models.Status(status)
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}

// CountPosts returns the number of posts in a scrapbook under a filter.
func (r *Repository) CountPosts(scrapbookID models.UUID, filter PostFilter) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM posts WHERE scrapbook_id = ?` + filter.condition()
	err := r.db.QueryRow(query, scrapbookID).Scan(&n)
	return n, err
}
