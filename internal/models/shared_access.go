package models

import "time"

// SharedAccess is a read-access grant from one user to another.
//
// A grant with an empty PostID covers the scrapbook as a whole; a grant with
// a PostID covers that single post. The sharing workflow always writes one
// scrapbook-level grant plus one post-level grant per post existing at share
// time, so grants never retroactively cover posts added afterwards.
type SharedAccess struct {
	ID          UUID  `db:"id" json:"id"`
	UserID      UUID  `db:"user_id" json:"user_id"`
	ScrapbookID UUID  `db:"scrapbook_id" json:"scrapbook_id,omitempty"`
	PostID      UUID  `db:"post_id" json:"post_id,omitempty"`
	SharedByID  UUID  `db:"shared_by" json:"shared_by"`
	CreatedAt   int64 `db:"created_at" json:"created_at"`
}

// TableName returns the table name for SharedAccess.
func (SharedAccess) TableName() string {
	return "shared_access"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (a *SharedAccess) CreatedAtTime() time.Time {
	return time.Unix(a.CreatedAt, 0)
}
