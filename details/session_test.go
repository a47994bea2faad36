package details

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedLocator answers each selection only when the test releases it.
type gatedLocator struct {
	mu       sync.Mutex
	gates    map[string]chan Coordinates
	canceled chan string
}

func newGatedLocator() *gatedLocator {
	return &gatedLocator{gates: map[string]chan Coordinates{}, canceled: make(chan string, 8)}
}

func (g *gatedLocator) gate(id string) chan Coordinates {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[id]
	if !ok {
		ch = make(chan Coordinates, 1)
		g.gates[id] = ch
	}
	return ch
}

func (g *gatedLocator) Locate(ctx context.Context, req LocationRequest) (Coordinates, error) {
	select {
	case c := <-g.gate(req.SelectionID):
		return c, nil
	case <-ctx.Done():
		g.canceled <- req.SelectionID
		return Coordinates{}, ctx.Err()
	}
}

func waitSettled(t *testing.T, settled <-chan struct{}) {
	t.Helper()
	select {
	case <-settled:
	case <-time.After(2 * time.Second):
		t.Fatal("record never settled")
	}
}

func newTestSession(t *testing.T, loc Locator) *Session {
	t.Helper()
	r, _ := newTestResolver(t, staticExtractor(&Metadata{}, nil), loc)
	logger, _ := test.NewNullLogger()
	s := NewSession(r, logger)
	t.Cleanup(s.Close)
	return s
}

func TestSession_Backfill(t *testing.T) {
	loc := newCountingLocator(Coordinates{Latitude: 37.422, Longitude: -122.084}, nil)
	s := newTestSession(t, loc)

	_, ok := s.Current()
	assert.False(t, ok)

	sel := testSelection(t)
	initial, settled := s.Select(context.Background(), sel)
	assert.Equal(t, UnknownLocation, initial.DisplayLocation)
	assert.True(t, initial.LocationPending)

	waitSettled(t, settled)
	rec, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, sel.ID, rec.SelectionID)
	assert.Equal(t, "Lat: 37.422000, Lng: -122.084000", rec.DisplayLocation)
	assert.Equal(t, LocationSourceDevice, rec.LocationSource)
	assert.False(t, rec.LocationPending)
	assert.Equal(t, initial.DisplayDate, rec.DisplayDate)
}

func TestSession_LookupFailureKeepsUnknown(t *testing.T) {
	s := newTestSession(t, newCountingLocator(Coordinates{}, ErrGeolocationUnavailable))

	_, settled := s.Select(context.Background(), testSelection(t))
	waitSettled(t, settled)

	rec, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, UnknownLocation, rec.DisplayLocation)
	assert.Equal(t, LocationSourceNone, rec.LocationSource)
	assert.False(t, rec.LocationPending)
}

func TestSession_StaleBackfillDiscarded(t *testing.T) {
	loc := newGatedLocator()
	s := newTestSession(t, loc)

	first := testSelection(t)
	_, firstSettled := s.Select(context.Background(), first)

	second := testSelection(t)
	_, secondSettled := s.Select(context.Background(), second)

	// replacing the first selection cancels its lookup
	select {
	case id := <-loc.canceled:
		assert.Equal(t, first.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("first lookup was not canceled")
	}
	waitSettled(t, firstSettled)

	rec, _ := s.Current()
	assert.Equal(t, second.ID, rec.SelectionID)
	assert.Equal(t, UnknownLocation, rec.DisplayLocation)
	assert.True(t, rec.LocationPending)

	loc.gate(second.ID) <- Coordinates{Latitude: -33.8568, Longitude: 151.2153}
	waitSettled(t, secondSettled)

	rec, _ = s.Current()
	assert.Equal(t, "Lat: -33.856800, Lng: 151.215300", rec.DisplayLocation)
}

func TestSession_ApplyIgnoresOtherSelections(t *testing.T) {
	s := newTestSession(t, nil)
	sel := testSelection(t)
	_, settled := s.Select(context.Background(), sel)
	waitSettled(t, settled)

	s.apply(LocationUpdate{SelectionID: "someone-else", DisplayLocation: "Lat: 1.000000, Lng: 1.000000"})

	rec, _ := s.Current()
	assert.Equal(t, UnknownLocation, rec.DisplayLocation)
}

func TestSession_SelectionSurvivesRequestContext(t *testing.T) {
	loc := newGatedLocator()
	s := newTestSession(t, loc)

	ctx, cancel := context.WithCancel(context.Background())
	sel := testSelection(t)
	_, settled := s.Select(ctx, sel)
	cancel()

	loc.gate(sel.ID) <- Coordinates{Latitude: 1.5, Longitude: 2.5}
	waitSettled(t, settled)

	rec, _ := s.Current()
	assert.Equal(t, "Lat: 1.500000, Lng: 2.500000", rec.DisplayLocation)
}

func TestSession_CloseCancelsLookup(t *testing.T) {
	loc := newGatedLocator()
	s := newTestSession(t, loc)

	sel := testSelection(t)
	_, settled := s.Select(context.Background(), sel)
	s.Close()

	waitSettled(t, settled)
	assert.Equal(t, sel.ID, <-loc.canceled)
	rec, _ := s.Current()
	assert.Equal(t, UnknownLocation, rec.DisplayLocation)
	assert.False(t, rec.LocationPending)
}

func TestSession_SelectionOnlyForLiveID(t *testing.T) {
	s := newTestSession(t, nil)

	_, ok := s.Selection("anything")
	assert.False(t, ok)

	first := testSelection(t)
	s.Select(context.Background(), first)
	second := testSelection(t)
	s.Select(context.Background(), second)

	_, ok = s.Selection(first.ID)
	assert.False(t, ok, "a replaced selection is gone")
	got, ok := s.Selection(second.ID)
	require.True(t, ok)
	assert.Equal(t, second.Payload, got.Payload)
}

func TestSession_InitialRecordIsIndependentOfBackfill(t *testing.T) {
	instant := LocatorFunc(func(context.Context, LocationRequest) (Coordinates, error) {
		return Coordinates{Latitude: 37.422, Longitude: -122.084}, nil
	})
	s := newTestSession(t, instant)

	for i := 0; i < 200; i++ {
		initial, settled := s.Select(context.Background(), testSelection(t))
		assert.Equal(t, UnknownLocation, initial.DisplayLocation)
		assert.Equal(t, LocationSourceNone, initial.LocationSource)
		assert.True(t, initial.LocationPending)
		waitSettled(t, settled)
		assert.Equal(t, UnknownLocation, initial.DisplayLocation, "backfill must not reach the returned record")
	}

	rec, _ := s.Current()
	assert.Equal(t, "Lat: 37.422000, Lng: -122.084000", rec.DisplayLocation)
}

func TestSession_OverlappingSelectsCommitInArrivalOrder(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	ex := ExtractorFunc(func(_ context.Context, payload []byte) (*Metadata, error) {
		if string(payload) == "slow" {
			close(entered)
			<-release
		}
		return &Metadata{}, nil
	})
	r, _ := newTestResolver(t, ex, nil)
	logger, _ := test.NewNullLogger()
	s := NewSession(r, logger)
	t.Cleanup(s.Close)

	slow, err := NewSelection("old.jpg", "image/jpeg", []byte("slow"), lastModified)
	require.NoError(t, err)
	fast, err := NewSelection("new.jpg", "image/jpeg", []byte("fast"), lastModified)
	require.NoError(t, err)

	done := make(chan DisplayRecord, 1)
	go func() {
		rec, settled := s.Select(context.Background(), slow)
		<-settled
		done <- rec
	}()
	<-entered

	_, settled := s.Select(context.Background(), fast)
	waitSettled(t, settled)
	close(release)

	select {
	case rec := <-done:
		assert.Equal(t, slow.ID, rec.SelectionID)
	case <-time.After(2 * time.Second):
		t.Fatal("older selection never returned")
	}

	live, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, fast.ID, live.SelectionID)
	_, ok = s.Selection(slow.ID)
	assert.False(t, ok)
}
