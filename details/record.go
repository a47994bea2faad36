package details

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UnknownLocation is the location shown until coordinates are known.
const UnknownLocation = "Unknown"

// DefaultDateLayout mirrors the en-US locale string shape, e.g. "7/4/2021, 10:30:00 AM".
const DefaultDateLayout = "1/2/2006, 3:04:05 PM"

// DateSource tells where the display date came from.
type DateSource string

const (
	DateSourceExif         DateSource = "exif"
	DateSourceLastModified DateSource = "lastModified"
)

// LocationSource tells where the display location came from.
type LocationSource string

const (
	LocationSourceExif   LocationSource = "exif"
	LocationSourceDevice LocationSource = "device"
	LocationSourceNone   LocationSource = "none"
)

// DisplayRecord is the user-facing result for one selection.
type DisplayRecord struct {
	SelectionID     string         `json:"selectionId"`
	FileName        string         `json:"fileName"`
	DisplayDate     string         `json:"displayDate"`
	DisplayLocation string         `json:"displayLocation"`
	DateSource      DateSource     `json:"dateSource"`
	LocationSource  LocationSource `json:"locationSource"`
	LocationPending bool           `json:"locationPending"`
	Camera          string         `json:"camera,omitempty"`
}

// Metadata is the best-effort output of an Extractor. Nil fields were not found.
type Metadata struct {
	CaptureTime *time.Time
	Latitude    *float64
	Longitude   *float64
	CameraMake  string
	CameraModel string
}

func (m *Metadata) captureTime() (time.Time, bool) {
	if m == nil || m.CaptureTime == nil || m.CaptureTime.IsZero() {
		return time.Time{}, false
	}
	return *m.CaptureTime, true
}

func (m *Metadata) coordinates() (Coordinates, bool) {
	if m == nil || m.Latitude == nil || m.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *m.Latitude, Longitude: *m.Longitude}, true
}

func (m *Metadata) camera() string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(m.CameraMake) + " " + strings.TrimSpace(m.CameraModel))
}

// Extractor reads embedded metadata from an image payload.
type Extractor interface {
	Extract(ctx context.Context, payload []byte) (*Metadata, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, payload []byte) (*Metadata, error)

func (f ExtractorFunc) Extract(ctx context.Context, payload []byte) (*Metadata, error) {
	return f(ctx, payload)
}

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both values are inside their ranges.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// String formats the coordinates the way they are displayed.
func (c Coordinates) String() string {
	return fmt.Sprintf("Lat: %.6f, Lng: %.6f", c.Latitude, c.Longitude)
}

// LocationRequest identifies the selection a lookup is made for.
type LocationRequest struct {
	SelectionID string
}

// Locator yields one best-effort position for a request.
type Locator interface {
	Locate(ctx context.Context, req LocationRequest) (Coordinates, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context, req LocationRequest) (Coordinates, error)

func (f LocatorFunc) Locate(ctx context.Context, req LocationRequest) (Coordinates, error) {
	return f(ctx, req)
}

// Formatter renders instants for display.
type Formatter struct {
	Layout   string
	Location *time.Location
}

// Date formats t with the configured layout and zone.
func (f Formatter) Date(t time.Time) string {
	layout := f.Layout
	if layout == "" {
		layout = DefaultDateLayout
	}
	if f.Location != nil {
		t = t.In(f.Location)
	}
	return t.Format(layout)
}
