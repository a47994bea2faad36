package details

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Session holds the single live DisplayRecord. A new selection replaces it
// wholesale; backfills are only applied to the selection that requested them.
type Session struct {
	resolver *Resolver
	log      logrus.FieldLogger

	mu      sync.RWMutex
	current *DisplayRecord
	live    ImageSelection
	cancel  context.CancelFunc
	// next is the arrival number handed to the next Select; committed is the
	// arrival number of the live record.
	next      uint64
	committed uint64
}

// NewSession returns an empty session.
func NewSession(resolver *Resolver, log logrus.FieldLogger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{resolver: resolver, log: log}
}

// Select resolves sel and makes its record the live one. The returned channel
// is closed once the record is settled, either backfilled or with its lookup over.
// The lookup is detached from ctx cancellation and ends when sel is replaced or
// the session is closed. Overlapping calls commit in arrival order: a selection
// made before the live one is resolved but never becomes live.
func (s *Session) Select(ctx context.Context, sel ImageSelection) (DisplayRecord, <-chan struct{}) {
	s.mu.Lock()
	s.next++
	seq := s.next
	s.mu.Unlock()

	lookupCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	res := s.resolver.Resolve(lookupCtx, sel)

	settled := make(chan struct{})
	live := res.Record

	s.mu.Lock()
	if seq < s.committed {
		s.mu.Unlock()
		cancel()
		close(settled)
		s.log.WithField("selection", sel.ID).Info("discarding superseded selection")
		return res.Record, settled
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.current = &live
	s.live = sel
	s.cancel = cancel
	s.committed = seq
	s.mu.Unlock()

	if res.Location == nil {
		cancel()
		close(settled)
		return res.Record, settled
	}
	go s.backfill(res.Location, sel.ID, settled)
	return res.Record, settled
}

func (s *Session) backfill(updates <-chan LocationUpdate, selectionID string, settled chan struct{}) {
	defer close(settled)
	for u := range updates {
		s.apply(u)
	}
	s.mu.Lock()
	if s.current != nil && s.current.SelectionID == selectionID {
		s.current.LocationPending = false
	}
	s.mu.Unlock()
}

func (s *Session) apply(u LocationUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.SelectionID != u.SelectionID {
		s.log.WithField("selection", u.SelectionID).Info("discarding location for replaced selection")
		return
	}
	s.current.DisplayLocation = u.DisplayLocation
	s.current.LocationSource = LocationSourceDevice
	s.current.LocationPending = false
}

// Current returns a copy of the live record.
func (s *Session) Current() (DisplayRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return DisplayRecord{}, false
	}
	return *s.current, true
}

// Selection returns the live selection if its ID is id.
func (s *Session) Selection(id string) (ImageSelection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.live.ID != id {
		return ImageSelection{}, false
	}
	return s.live, true
}

// Close cancels the pending lookup, if any.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
