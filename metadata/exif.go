// Package metadata reads capture details embedded in image payloads.
package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"

	"photoDetails/details"
)

func init() {
	// Register manufacturer-specific note parsers so some vendor fields decode correctly.
	exif.RegisterParsers(mknote.All...)
}

// ExifExtractor implements details.Extractor on top of goexif.
// Supports JPEG and TIFF-based formats with EXIF blocks. Returns best-effort data.
type ExifExtractor struct {
	// Location is used for EXIF timestamps, which carry no zone. Defaults to time.Local.
	Location *time.Location
}

// NewExifExtractor returns an extractor interpreting timestamps in loc.
func NewExifExtractor(loc *time.Location) *ExifExtractor {
	return &ExifExtractor{Location: loc}
}

// Extract decodes the EXIF block of payload. Errors in optional sub-directories
// (GPS, interoperability) do not fail the extraction.
func (e *ExifExtractor) Extract(ctx context.Context, payload []byte) (*details.Metadata, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x, err := exif.Decode(bytes.NewReader(payload))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, fmt.Errorf("decoding exif: %w", err)
	}

	var out details.Metadata

	// Date/time
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized} {
		if t, ok := e.timeField(x, field); ok {
			out.CaptureTime = &t
			break
		}
	}

	// Make/model
	out.CameraMake = stringField(x, exif.Make)
	out.CameraModel = stringField(x, exif.Model)

	// GPS; out-of-range values are treated as absent
	if lat, lon, err := x.LatLong(); err == nil {
		if (details.Coordinates{Latitude: lat, Longitude: lon}).Valid() {
			out.Latitude = &lat
			out.Longitude = &lon
		}
	}

	return &out, nil
}

func (e *ExifExtractor) timeField(x *exif.Exif, field exif.FieldName) (time.Time, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return time.Time{}, false
	}
	s, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	t, err := parseExifTime(s, e.location())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (e *ExifExtractor) location() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

func stringField(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

func parseExifTime(s string, loc *time.Location) (time.Time, error) {
	// EXIF time commonly "2006:01:02 15:04:05"
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	layouts := []string{
		"2006:01:02 15:04:05",
		time.RFC3339,
	}
	var first error
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l, s, loc); err == nil {
			if t.IsZero() {
				return time.Time{}, fmt.Errorf("zero exif time: %q", s)
			}
			return t, nil
		} else if first == nil {
			first = err
		}
	}
	if first == nil {
		first = fmt.Errorf("unable to parse exif time: %q", s)
	}
	return time.Time{}, first
}
