package timeutil

import (
	"math"
	"testing"
	"time"
)

func TestStartOfDay(t *testing.T) {
	t.Parallel()

	input := time.Date(2026, 3, 1, 14, 37, 9, 123, time.Local)
	got := StartOfDay(input)

	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("unexpected date: %v", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("expected midnight, got %v", got)
	}
}

func TestSameDay(t *testing.T) {
	t.Parallel()

	a := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	b := time.Date(2026, 3, 1, 18, 30, 0, 0, time.Local)
	c := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)

	if !SameDay(a, b) {
		t.Fatalf("expected same day for %v and %v", a, b)
	}
	if SameDay(a, c) {
		t.Fatalf("expected different days for %v and %v", a, c)
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	from, to := Window(now, 24)
	if !to.Equal(now) {
		t.Fatalf("expected window end %v, got %v", now, to)
	}
	if want := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Fatalf("expected window start %v, got %v", want, from)
	}

	from, _ = Window(now, -5)
	if !from.Equal(now) {
		t.Fatalf("negative lookback should collapse to now, got %v", from)
	}
}

func TestHoursFor_Examples(t *testing.T) {
	t.Parallel()

	cases := []struct {
		seconds int
		want    float64
	}{
		{seconds: -60, want: 0},
		{seconds: 0, want: 0},
		{seconds: 1, want: 0.25},
		{seconds: 900, want: 0.25},
		{seconds: 901, want: 0.5},
		{seconds: 3600, want: 1.0},
		{seconds: 3601, want: 1.25},
		{seconds: 5400, want: 1.5},
	}
	for _, tc := range cases {
		if got := HoursFor(tc.seconds); got != tc.want {
			t.Fatalf("HoursFor(%d) = %v, want %v", tc.seconds, got, tc.want)
		}
	}
}

func TestHoursFor_RoundsUpToQuarter(t *testing.T) {
	t.Parallel()

	for seconds := 1; seconds <= 4*3600; seconds += 37 {
		got := HoursFor(seconds)
		if quarters := got * 4; quarters != math.Trunc(quarters) {
			t.Fatalf("HoursFor(%d) = %v is not a multiple of 0.25", seconds, got)
		}
		if got < float64(seconds)/3600 {
			t.Fatalf("HoursFor(%d) = %v rounds below the logged time", seconds, got)
		}
		if got-float64(seconds)/3600 >= 0.25 {
			t.Fatalf("HoursFor(%d) = %v rounds up by a full quarter or more", seconds, got)
		}
	}
}
