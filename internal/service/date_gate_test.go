package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func julyGate(year int) *DateGate {
	return NewDateGate(TargetRange{Year: year, Month: time.July, Location: time.UTC})
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestTargetRange(t *testing.T) {
	rng := TargetRange{Year: 2025, Month: time.July}
	assert.Equal(t, day(2025, time.June, 30), rng.PreviewDate())
	assert.Equal(t, day(2025, time.July, 1), rng.FirstDay())
	assert.Equal(t, 31, rng.DaysInMonth())

	feb := TargetRange{Year: 2024, Month: time.February}
	assert.Equal(t, 29, feb.DaysInMonth())
	assert.Equal(t, day(2024, time.January, 31), feb.PreviewDate())
}

func TestGalleryIDFor(t *testing.T) {
	gate := julyGate(2025)

	assert.Equal(t, PreviewGalleryID, gate.GalleryIDFor(day(2025, time.June, 30)))
	for d := 1; d <= 31; d++ {
		assert.Equal(t, d, gate.GalleryIDFor(day(2025, time.July, d)))
	}
	// June 30th of another year is not the preview day.
	assert.Equal(t, 30, gate.GalleryIDFor(day(2024, time.June, 30)))
}

func TestInteriorDaysStepBothWays(t *testing.T) {
	gate := julyGate(2025)
	for d := 2; d <= 30; d++ {
		cur := day(2025, time.July, d)
		assert.True(t, gate.CanStepBackward(cur), "backward from July %d", d)
		assert.True(t, gate.CanStepForward(cur), "forward from July %d", d)
	}
}

func TestBoundaryDays(t *testing.T) {
	gate := julyGate(2025)
	preview := day(2025, time.June, 30)
	first := day(2025, time.July, 1)
	last := day(2025, time.July, 31)

	assert.True(t, gate.CanStepBackward(first), "July 1 steps back to the preview day")
	assert.True(t, gate.CanStepForward(first))

	assert.False(t, gate.CanStepBackward(preview), "nothing before the preview day")
	assert.True(t, gate.CanStepForward(preview))

	assert.True(t, gate.CanStepBackward(last))
	assert.False(t, gate.CanStepForward(last), "no trailing sentinel after the last day")
}

func TestOtherYearIsNotNavigable(t *testing.T) {
	gate := julyGate(2025)
	assert.False(t, gate.CanStepForward(day(2024, time.July, 31)))
	assert.False(t, gate.CanStepForward(day(2024, time.June, 30)))
	assert.False(t, gate.Contains(day(2024, time.July, 4)))
}

func TestStep(t *testing.T) {
	gate := julyGate(2025)

	tests := []struct {
		name    string
		from    time.Time
		dir     Direction
		want    time.Time
		changed bool
	}{
		{name: "forward inside month", from: day(2025, time.July, 4), dir: Forward, want: day(2025, time.July, 5), changed: true},
		{name: "backward inside month", from: day(2025, time.July, 4), dir: Backward, want: day(2025, time.July, 3), changed: true},
		{name: "first to preview", from: day(2025, time.July, 1), dir: Backward, want: day(2025, time.June, 30), changed: true},
		{name: "preview to first", from: day(2025, time.June, 30), dir: Forward, want: day(2025, time.July, 1), changed: true},
		{name: "backward from preview is a no-op", from: day(2025, time.June, 30), dir: Backward, want: day(2025, time.June, 30), changed: false},
		{name: "forward from last day is a no-op", from: day(2025, time.July, 31), dir: Forward, want: day(2025, time.July, 31), changed: false},
		{name: "unknown direction is a no-op", from: day(2025, time.July, 4), dir: Direction(9), want: day(2025, time.July, 4), changed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := gate.Step(tt.from, tt.dir)
			assert.Equal(t, tt.changed, changed)
			assert.True(t, got.Equal(tt.want), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestDaysAndDateForGalleryID(t *testing.T) {
	gate := julyGate(2025)

	days := gate.Days()
	require.Len(t, days, 32)
	assert.Equal(t, day(2025, time.June, 30), days[0])
	assert.Equal(t, day(2025, time.July, 31), days[31])

	for _, d := range days {
		back, err := gate.DateForGalleryID(gate.GalleryIDFor(d))
		require.NoError(t, err)
		assert.Equal(t, d, back)
	}

	_, err := gate.DateForGalleryID(32)
	assert.ErrorIs(t, err, ErrDateOutOfRange)
}

func TestParseDate(t *testing.T) {
	gate := julyGate(2025)

	got, err := gate.ParseDate("2025-07-04")
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.July, 4), got)

	_, err = gate.ParseDate("2025-06-30")
	assert.NoError(t, err)

	_, err = gate.ParseDate("2025-08-01")
	assert.ErrorIs(t, err, ErrDateOutOfRange)

	_, err = gate.ParseDate("july fourth")
	assert.Error(t, err)
}

func TestDefaultDate(t *testing.T) {
	gate := julyGate(2025)
	assert.Equal(t, day(2025, time.July, 12), gate.DefaultDate(time.Date(2025, time.July, 12, 18, 30, 0, 0, time.UTC)))
	assert.Equal(t, day(2025, time.July, 1), gate.DefaultDate(time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseDirection(t *testing.T) {
	dir, err := ParseDirection("prev")
	require.NoError(t, err)
	assert.Equal(t, Backward, dir)

	dir, err = ParseDirection(" NEXT ")
	require.NoError(t, err)
	assert.Equal(t, Forward, dir)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
