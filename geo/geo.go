// Package geo provides the location providers a selection falls back to when
// its image carries no GPS coordinates.
package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"photoDetails/details"
)

var (
	// ErrNoPendingRequest is returned when a delivery names a selection nobody is waiting for.
	ErrNoPendingRequest = errors.New("no pending location request")
	// ErrInvalidCoordinates is returned for positions outside the WGS84 ranges.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Static always answers with the same position.
type Static struct {
	Coordinates details.Coordinates
}

func (s Static) Locate(ctx context.Context, _ details.LocationRequest) (details.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return details.Coordinates{}, err
	}
	if !s.Coordinates.Valid() {
		return details.Coordinates{}, fmt.Errorf("%w: %w", details.ErrGeolocationUnavailable, ErrInvalidCoordinates)
	}
	return s.Coordinates, nil
}

// WithTimeout bounds every lookup of loc by d. A non-positive d returns loc unchanged.
func WithTimeout(loc details.Locator, d time.Duration) details.Locator {
	if d <= 0 || loc == nil {
		return loc
	}
	return details.LocatorFunc(func(ctx context.Context, req details.LocationRequest) (details.Coordinates, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		c, err := loc.Locate(ctx, req)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return details.Coordinates{}, fmt.Errorf("%w: no answer within %s", details.ErrGeolocationUnavailable, d)
		}
		return c, err
	})
}
