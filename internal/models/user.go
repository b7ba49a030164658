package models

import "time"

// User represents an account that can own and view scrapbooks.
type User struct {
	ID           UUID   `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	Email        string `db:"email" json:"email,omitempty"`
	PasswordHash string `db:"password_hash" json:"-"`
	CreatedAt    int64  `db:"created_at" json:"created_at"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (u *User) CreatedAtTime() time.Time {
	return time.Unix(u.CreatedAt, 0)
}
