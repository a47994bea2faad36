package details

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// LocationUpdate is a backfilled location for the selection it was requested for.
type LocationUpdate struct {
	SelectionID     string
	Coordinates     Coordinates
	DisplayLocation string
}

// Resolution is the outcome of resolving one selection.
type Resolution struct {
	Record DisplayRecord
	// Location delivers at most one update and is closed when the lookup ends.
	// It is nil when no lookup was issued.
	Location <-chan LocationUpdate
}

// Resolver applies the date and location precedence rules.
type Resolver struct {
	extractor Extractor
	locator   Locator
	format    Formatter
	log       logrus.FieldLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFormatter sets the date formatter.
func WithFormatter(f Formatter) Option {
	return func(r *Resolver) { r.format = f }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) { r.log = log }
}

// NewResolver returns a resolver. A nil locator behaves as a device without geolocation.
func NewResolver(extractor Extractor, locator Locator, opts ...Option) *Resolver {
	r := &Resolver{
		extractor: extractor,
		locator:   locator,
		format:    Formatter{Layout: DefaultDateLayout},
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve never fails: extraction errors fall back to the file's modification
// time and an unknown location. The lookup started for a missing location runs
// under ctx and outlives the call.
func (r *Resolver) Resolve(ctx context.Context, sel ImageSelection) Resolution {
	log := r.log.WithFields(logrus.Fields{"selection": sel.ID, "file": sel.Name})

	meta, err := r.extract(ctx, sel.Payload)
	if err != nil {
		log.WithError(err).Error("error reading metadata")
	} else {
		_, hasTime := meta.captureTime()
		_, hasCoords := meta.coordinates()
		log.WithFields(logrus.Fields{
			"captureTime": hasTime,
			"coordinates": hasCoords,
		}).Debug("extracted metadata")
	}

	rec := DisplayRecord{
		SelectionID:     sel.ID,
		FileName:        sel.Name,
		DisplayLocation: UnknownLocation,
		LocationSource:  LocationSourceNone,
		Camera:          meta.camera(),
	}

	if t, ok := meta.captureTime(); ok {
		rec.DisplayDate = r.format.Date(t)
		rec.DateSource = DateSourceExif
	} else {
		rec.DisplayDate = r.format.Date(sel.LastModified)
		rec.DateSource = DateSourceLastModified
	}

	var updates <-chan LocationUpdate
	if c, ok := meta.coordinates(); ok {
		rec.DisplayLocation = c.String()
		rec.LocationSource = LocationSourceExif
	} else if r.locator != nil {
		rec.LocationPending = true
		updates = r.lookup(ctx, sel.ID, log)
	} else {
		log.Warn("geolocation not available")
	}

	log.WithFields(logrus.Fields{
		"displayDate":     rec.DisplayDate,
		"displayLocation": rec.DisplayLocation,
	}).Info("extracted details")

	return Resolution{Record: rec, Location: updates}
}

func (r *Resolver) extract(ctx context.Context, payload []byte) (meta *Metadata, err error) {
	if r.extractor == nil {
		return nil, fmt.Errorf("%w: no extractor configured", ErrExtractionFailure)
	}
	defer func() {
		if p := recover(); p != nil {
			meta, err = nil, fmt.Errorf("%w: extractor panic: %v", ErrExtractionFailure, p)
		}
	}()
	meta, err = r.extractor.Extract(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailure, err)
	}
	if meta == nil {
		meta = &Metadata{}
	}
	return meta, nil
}

func (r *Resolver) lookup(ctx context.Context, selectionID string, log logrus.FieldLogger) <-chan LocationUpdate {
	ch := make(chan LocationUpdate, 1)
	go func() {
		defer close(ch)
		c, err := r.locate(ctx, selectionID)
		if err != nil {
			log.WithError(err).Warn("geolocation not available")
			return
		}
		log.WithFields(logrus.Fields{
			"latitude":  c.Latitude,
			"longitude": c.Longitude,
		}).Info("device location fallback")
		ch <- LocationUpdate{
			SelectionID:     selectionID,
			Coordinates:     c,
			DisplayLocation: c.String(),
		}
	}()
	return ch
}

func (r *Resolver) locate(ctx context.Context, selectionID string) (c Coordinates, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: locator panic: %v", ErrGeolocationUnavailable, p)
		}
	}()
	c, err = r.locator.Locate(ctx, LocationRequest{SelectionID: selectionID})
	if err != nil {
		return Coordinates{}, err
	}
	if !c.Valid() {
		return Coordinates{}, fmt.Errorf("%w: coordinates out of range: %v", ErrGeolocationUnavailable, c)
	}
	return c, nil
}
