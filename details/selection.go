// Package details resolves the date and location shown for a selected image.
package details

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidSelection is returned at the upload boundary for payloads that are not images.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrExtractionFailure wraps any failure of the metadata extractor.
	ErrExtractionFailure = errors.New("metadata extraction failed")
	// ErrGeolocationUnavailable is reported by locators that cannot produce coordinates.
	ErrGeolocationUnavailable = errors.New("geolocation unavailable")
)

// RejectionMessage is shown to the user when a selection is not admitted.
const RejectionMessage = "You can only upload image files!"

// ImageSelection is one file picked by the user. It is never modified after creation.
type ImageSelection struct {
	ID           string
	Name         string
	ContentType  string
	Payload      []byte
	LastModified time.Time
}

// NewSelection admits the payload and tags it with a fresh selection ID.
func NewSelection(name, contentType string, payload []byte, lastModified time.Time) (ImageSelection, error) {
	if err := Admit(contentType); err != nil {
		return ImageSelection{}, err
	}
	return ImageSelection{
		ID:           uuid.NewString(),
		Name:         name,
		ContentType:  contentType,
		Payload:      payload,
		LastModified: lastModified,
	}, nil
}

// Admit accepts only content types starting with "image/".
func Admit(contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: content type %q", ErrInvalidSelection, contentType)
	}
	return nil
}
