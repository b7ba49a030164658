package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Post represents a single entry (title, text, image) within a scrapbook.
// Posts are ordered newest-first within their scrapbook.
type Post struct {
	ID          UUID   `db:"id" json:"id"`
	ScrapbookID UUID   `db:"scrapbook_id" json:"scrapbook_id"`
	AuthorID    UUID   `db:"author_id" json:"author_id"`
	Title       string `db:"title" json:"title"`
	Slug        string `db:"slug" json:"slug"`
	Image       string `db:"image" json:"image"`
	Content     string `db:"content" json:"content,omitempty"`
	Status      Status `db:"status" json:"status"`
	Approved    bool   `db:"approved" json:"approved"`
	CreatedAt   int64  `db:"created_at" json:"created_at"`
	UpdatedAt   int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for Post.
func (Post) TableName() string {
	return "posts"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (p *Post) CreatedAtTime() time.Time {
	return time.Unix(p.CreatedAt, 0)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (p *Post) UpdatedAtTime() time.Time {
	return time.Unix(p.UpdatedAt, 0)
}

// Touch updates the UpdatedAt timestamp.
func (p *Post) Touch() {
	p.UpdatedAt = time.Now().Unix()
}

// Normalize trims surrounding whitespace from the title.
func (p *Post) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
}

// Validate checks field-level constraints. forCreate additionally requires
// the image, which is mandatory at creation but not on update.
func (p *Post) Validate(forCreate bool) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "This field is required."})
	} else if utf8.RuneCountInString(strings.TrimSpace(p.Title)) > TitleMaxLen {
		errs = append(errs, FieldError{Field: "title", Message: "Ensure this value has at most 100 characters."})
	}
	if forCreate && p.Image == "" {
		errs = append(errs, FieldError{Field: "image", Message: "This field is required."})
	}
	if !p.Status.Valid() {
		errs = append(errs, FieldError{Field: "status", Message: "Select a valid status."})
	}
	if p.ScrapbookID == "" {
		errs = append(errs, FieldError{Field: "scrapbook", Message: "This field is required."})
	}
	if p.AuthorID == "" {
		errs = append(errs, FieldError{Field: "author", Message: "This field is required."})
	}
	return errs
}
