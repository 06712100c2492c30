package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	mu    sync.Mutex
	calls []int
	delay map[int]time.Duration
}

func (s *stubLoader) Resolve(_ context.Context, galleryID int) Resolution {
	if d := s.delay[galleryID]; d > 0 {
		time.Sleep(d)
	}
	s.mu.Lock()
	s.calls = append(s.calls, galleryID)
	s.mu.Unlock()
	return Resolution{GalleryID: galleryID, Kind: ResolutionProbe, Items: []GalleryItem{{ID: 1}}}
}

func TestNewDayViewRejectsOutOfRange(t *testing.T) {
	_, err := NewDayView(julyGate(2025), &stubLoader{}, day(2025, time.August, 1))
	assert.ErrorIs(t, err, ErrDateOutOfRange)
}

func TestDayViewLoad(t *testing.T) {
	loader := &stubLoader{}
	view, err := NewDayView(julyGate(2025), loader, day(2025, time.July, 4))
	require.NoError(t, err)

	_, loaded := view.Gallery()
	assert.False(t, loaded)

	res := view.Load(context.Background())
	assert.Equal(t, 4, res.GalleryID)

	got, loaded := view.Gallery()
	assert.True(t, loaded)
	assert.Equal(t, res, got)
}

func TestDayViewNavigate(t *testing.T) {
	loader := &stubLoader{}
	view, err := NewDayView(julyGate(2025), loader, day(2025, time.July, 1))
	require.NoError(t, err)

	res, ok := view.Navigate(context.Background(), Backward)
	require.True(t, ok)
	assert.Equal(t, PreviewGalleryID, res.GalleryID)
	assert.Equal(t, day(2025, time.June, 30), view.Current())

	assert.False(t, view.CanStep(Backward))
	_, ok = view.Navigate(context.Background(), Backward)
	assert.False(t, ok)
	assert.Equal(t, day(2025, time.June, 30), view.Current())

	res, ok = view.Navigate(context.Background(), Forward)
	require.True(t, ok)
	assert.Equal(t, 1, res.GalleryID)
	assert.Equal(t, []int{PreviewGalleryID, 1}, loader.calls)
}

func TestDayViewNoForwardFromLastDay(t *testing.T) {
	loader := &stubLoader{}
	view, err := NewDayView(julyGate(2025), loader, day(2025, time.July, 31))
	require.NoError(t, err)

	_, ok := view.Navigate(context.Background(), Forward)
	assert.False(t, ok)
	assert.Empty(t, loader.calls)
	assert.Equal(t, 31, view.GalleryID())
}

func TestDayViewLastCompletedResolutionWins(t *testing.T) {
	loader := &stubLoader{delay: map[int]time.Duration{4: 40 * time.Millisecond}}
	view, err := NewDayView(julyGate(2025), loader, day(2025, time.July, 4))
	require.NoError(t, err)

	slow := make(chan struct{})
	go func() {
		view.Load(context.Background())
		close(slow)
	}()
	time.Sleep(5 * time.Millisecond)

	_, ok := view.Navigate(context.Background(), Forward)
	require.True(t, ok)
	<-slow

	got, _ := view.Gallery()
	assert.Equal(t, 4, got.GalleryID, "the slower, later-completing call overwrites")
	assert.Equal(t, day(2025, time.July, 5), view.Current())
}

func TestDayViewStepDoesNotLoad(t *testing.T) {
	loader := &stubLoader{}
	view, err := NewDayView(julyGate(2025), loader, day(2025, time.July, 1))
	require.NoError(t, err)

	next, ok := view.Step(Backward)
	require.True(t, ok)
	assert.Equal(t, day(2025, time.June, 30), next)
	assert.Equal(t, PreviewGalleryID, view.GalleryID())

	next, ok = view.Step(Backward)
	assert.False(t, ok)
	assert.Equal(t, day(2025, time.June, 30), next)

	_, loaded := view.Gallery()
	assert.False(t, loaded)
	assert.Empty(t, loader.calls)
}
