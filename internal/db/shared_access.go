package db

import (
	"time"

	apperrors "github.com/ferntrail/scrapbook/internal/errors"
	"github.com/ferntrail/scrapbook/internal/models"
)

// HasScrapbookGrant reports whether a scrapbook-level or post-level grant
// exists for (user, scrapbook). The visibility policy treats any such grant
// as read access to the scrapbook and its posts.
func (r *Repository) HasScrapbookGrant(userID, scrapbookID models.UUID) (bool, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM shared_access WHERE user_id = ? AND scrapbook_id = ?`,
		userID, scrapbookID).Scan(&n)
	return n > 0, err
}

// CountScrapbookGrants returns how many scrapbook-level grants (post IS NULL)
// exist for (user, scrapbook). The unique index keeps this at most 1.
func (r *Repository) CountScrapbookGrants(userID, scrapbookID models.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM shared_access
		 WHERE user_id = ? AND scrapbook_id = ? AND post_id IS NULL`,
		userID, scrapbookID).Scan(&n)
	return n, err
}

// SharedPostIDs returns the IDs of posts individually granted to a user
// within a scrapbook.
func (r *Repository) SharedPostIDs(userID, scrapbookID models.UUID) ([]models.UUID, error) {
	rows, err := r.db.Query(
		`SELECT post_id FROM shared_access
		 WHERE user_id = ? AND scrapbook_id = ? AND post_id IS NOT NULL`,
		userID, scrapbookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []models.UUID
	for rows.Next() {
		var id models.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateShareGrants writes the grant records for sharing a scrapbook: one
// scrapbook-level grant plus one post-level grant for every post currently
// in the scrapbook, all in a single transaction. Partial application would
// let the policy allow the scrapbook while lacking a post row the grantee
// should hold, so any failure rolls the whole set back.
//
// A uniqueness violation on the scrapbook-level row maps to DuplicateGrant:
// the unique index, not the caller's pre-check, is the authoritative guard
// against concurrent shares.
func (r *Repository) CreateShareGrants(scrapbookID, granteeID, grantorID models.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	insert := `
	INSERT INTO shared_access (id, user_id, scrapbook_id, post_id, shared_by, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	if _, err := tx.Exec(insert, newID(), granteeID, scrapbookID, nil, grantorID, now); err != nil {
		if IsConstraintViolation(err) {
			return apperrors.Wrap(apperrors.ErrDuplicateGrant,
				"scrapbook already shared with this user", err)
		}
		return err
	}

	rows, err := tx.Query(`SELECT id FROM posts WHERE scrapbook_id = ?`, scrapbookID)
	if err != nil {
		return err
	}
	var postIDs []models.UUID
	for rows.Next() {
		var id models.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		postIDs = append(postIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, postID := range postIDs {
		if _, err := tx.Exec(insert, newID(), granteeID, scrapbookID, nullable(postID), grantorID, now); err != nil {
			if IsConstraintViolation(err) {
				return apperrors.Wrap(apperrors.ErrDuplicateGrant,
					"post already shared with this user", err)
			}
			return err
		}
	}

	return tx.Commit()
}
