// Package media provides validation and storage for uploaded images.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	_ "golang.org/x/image/webp"
)

// DefaultMaxBytes is the upload size ceiling: 2 MiB, inclusive.
const DefaultMaxBytes = 2 * 1024 * 1024

var (
	// ErrTooLarge is returned for uploads exceeding the size ceiling.
	ErrTooLarge = errors.New("image exceeds the maximum allowed size")
	// ErrNotAnImage is returned for uploads that do not decode as a
	// supported raster image.
	ErrNotAnImage = errors.New("file is not a supported image")
)

// Validator checks uploaded image bytes against the configured ceiling.
type Validator struct {
	maxBytes int64
}

// NewValidator creates a Validator. A non-positive max falls back to
// DefaultMaxBytes.
func NewValidator(maxBytes int64) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Validator{maxBytes: maxBytes}
}

// MaxBytes returns the configured size ceiling.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// Validate reads the upload and checks size and format. An upload of
// exactly MaxBytes passes; one byte over fails with ErrTooLarge. The
// content must sniff as an image MIME type and decode as a raster image
// (jpeg, png, gif or webp), otherwise ErrNotAnImage.
//
// Returns the validated bytes and the canonical file extension.
func (v *Validator) Validate(r io.Reader) ([]byte, string, error) {
	buf, err := io.ReadAll(io.LimitReader(r, v.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(buf)) > v.maxBytes {
		return nil, "", ErrTooLarge
	}

	mt := mimetype.Detect(buf)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", ErrNotAnImage
	}

	if _, err := imaging.Decode(bytes.NewReader(buf)); err != nil {
		return nil, "", ErrNotAnImage
	}

	return buf, mt.Extension(), nil
}
