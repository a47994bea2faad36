package geo

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"photoDetails/details"
)

type answer struct {
	coords details.Coordinates
	err    error
}

// ClientLocator is the widget page's browser geolocation. Locate parks the
// request under its selection ID until the page reports back through Deliver
// or Fail, or until ctx ends.
type ClientLocator struct {
	log logrus.FieldLogger

	mu      sync.Mutex
	pending map[string]chan answer
}

// NewClientLocator returns a locator with no pending requests.
func NewClientLocator(log logrus.FieldLogger) *ClientLocator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ClientLocator{log: log, pending: map[string]chan answer{}}
}

func (l *ClientLocator) Locate(ctx context.Context, req details.LocationRequest) (details.Coordinates, error) {
	ch := make(chan answer, 1)

	l.mu.Lock()
	l.pending[req.SelectionID] = ch
	l.mu.Unlock()
	l.log.WithField("selection", req.SelectionID).Debug("waiting for browser location")

	defer func() {
		l.mu.Lock()
		if l.pending[req.SelectionID] == ch {
			delete(l.pending, req.SelectionID)
		}
		l.mu.Unlock()
	}()

	select {
	case a := <-ch:
		return a.coords, a.err
	case <-ctx.Done():
		return details.Coordinates{}, ctx.Err()
	}
}

// Pending reports whether a lookup for selectionID is waiting for an answer.
func (l *ClientLocator) Pending(selectionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[selectionID]
	return ok
}

// Deliver answers the lookup for selectionID with c.
func (l *ClientLocator) Deliver(selectionID string, c details.Coordinates) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidCoordinates, c)
	}
	return l.answer(selectionID, answer{coords: c})
}

// Fail reports that the browser could not provide a location for selectionID.
func (l *ClientLocator) Fail(selectionID, reason string) error {
	if reason == "" {
		reason = "denied or unsupported"
	}
	return l.answer(selectionID, answer{err: fmt.Errorf("%w: %s", details.ErrGeolocationUnavailable, reason)})
}

func (l *ClientLocator) answer(selectionID string, a answer) error {
	l.mu.Lock()
	ch, ok := l.pending[selectionID]
	if ok {
		delete(l.pending, selectionID)
	}
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: selection %s", ErrNoPendingRequest, selectionID)
	}
	ch <- a
	return nil
}
