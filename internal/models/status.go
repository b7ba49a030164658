package models

import "fmt"

// Status is the tri-state visibility of a scrapbook or post.
type Status int

const (
	StatusDraft   Status = 0
	StatusPrivate Status = 1
	StatusPublic  Status = 2
)

// String returns the display name of the status.
func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusPrivate:
		return "Private"
	case StatusPublic:
		return "Public"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Valid reports whether the status is one of the defined values.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPrivate || s == StatusPublic
}

// ParseStatus converts an integer into a Status.
// Returns an error for values outside the enum.
func ParseStatus(v int) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return 0, fmt.Errorf("%d is not a valid status", v)
	}
	return s, nil
}
