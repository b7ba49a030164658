package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Scrapbook represents a collection of posts owned by one user.
//
// Visibility is governed by Status together with SharedAccess grants: a
// scrapbook is readable by anyone when Public, and otherwise only by its
// author and by users holding a scrapbook-level grant.
type Scrapbook struct {
	ID          UUID   `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Slug        string `db:"slug" json:"slug"`
	Image       string `db:"image" json:"image"`
	Content     string `db:"content" json:"content,omitempty"`
	Description string `db:"description" json:"description,omitempty"`
	Status      Status `db:"status" json:"status"`
	AuthorID    UUID   `db:"author_id" json:"author_id"`
	CreatedAt   int64  `db:"created_at" json:"created_at"`
	UpdatedAt   int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for Scrapbook.
func (Scrapbook) TableName() string {
	return "scrapbooks"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (s *Scrapbook) CreatedAtTime() time.Time {
	return time.Unix(s.CreatedAt, 0)
}

// UpdatedAtTime returns the UpdatedAt as time.Time.
func (s *Scrapbook) UpdatedAtTime() time.Time {
	return time.Unix(s.UpdatedAt, 0)
}

// Touch updates the UpdatedAt timestamp.
func (s *Scrapbook) Touch() {
	s.UpdatedAt = time.Now().Unix()
}

// Normalize trims surrounding whitespace from the title.
// Called on every save so stored titles never carry padding.
func (s *Scrapbook) Normalize() {
	s.Title = strings.TrimSpace(s.Title)
}

// Validate checks field-level constraints. forCreate additionally requires
// the cover image, which is mandatory at creation but not on update.
func (s *Scrapbook) Validate(forCreate bool) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(s.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Message: "This field is required."})
	} else if utf8.RuneCountInString(strings.TrimSpace(s.Title)) > TitleMaxLen {
		errs = append(errs, FieldError{Field: "title", Message: "Ensure this value has at most 100 characters."})
	}
	if forCreate && s.Image == "" {
		errs = append(errs, FieldError{Field: "image", Message: "This field is required."})
	}
	if !s.Status.Valid() {
		errs = append(errs, FieldError{Field: "status", Message: "Select a valid status."})
	}
	if s.AuthorID == "" {
		errs = append(errs, FieldError{Field: "author", Message: "This field is required."})
	}
	return errs
}
