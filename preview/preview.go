// Package preview renders the downscaled JPEG shown next to a selection's details.
package preview

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxSize = 640
	DefaultQuality = 85
)

// ErrEmptyPayload is returned when there is nothing to decode.
var ErrEmptyPayload = errors.New("empty payload")

// Render decodes payload, applies its EXIF orientation, fits it into a
// maxSize square keeping the aspect ratio and encodes the result as JPEG.
// Images already smaller than the box are not upscaled.
func Render(payload []byte, maxSize, quality int) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}

	src, err := imaging.Decode(bytes.NewReader(payload), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// Fit keeps the aspect ratio and leaves smaller images alone.
	thumb := imaging.Fit(src, maxSize, maxSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
