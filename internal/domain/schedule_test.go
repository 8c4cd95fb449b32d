package domain

import (
	"errors"
	"testing"
	"time"
)

// helper: build a time in given tz and return its UTC
func mustLocalUTC(t *testing.T, tz string, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc).UTC()
}

func TestNextPromptTime_TargetStillAheadToday(t *testing.T) {
	// 08:59 Moscow, target 09:00 → today 09:00 Moscow
	nowUTC := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 5, 8, 59)
	next, err := NextPromptTime(9, 0, "Europe/Moscow", nowUTC)
	if err != nil {
		t.Fatalf("NextPromptTime: %v", err)
	}
	want := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 5, 9, 0)
	if !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
}

func TestNextPromptTime_TargetPassedToday(t *testing.T) {
	// 09:01 Moscow, target 09:00 → tomorrow 09:00 Moscow
	nowUTC := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 5, 9, 1)
	next, err := NextPromptTime(9, 0, "Europe/Moscow", nowUTC)
	if err != nil {
		t.Fatalf("NextPromptTime: %v", err)
	}
	want := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 6, 9, 0)
	if !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
}

func TestNextPromptTime_ExactBoundaryCountsAsPassed(t *testing.T) {
	nowUTC := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 5, 9, 0)
	next, err := NextPromptTime(9, 0, "Europe/Moscow", nowUTC)
	if err != nil {
		t.Fatalf("NextPromptTime: %v", err)
	}
	want := mustLocalUTC(t, "Europe/Moscow", 2025, time.May, 6, 9, 0)
	if !next.Equal(want) {
		t.Fatalf("boundary should advance to tomorrow: want %v, got %v", want, next)
	}
	if !next.After(nowUTC) {
		t.Fatalf("next must be strictly after now")
	}
}

func TestNextPromptTime_AcrossDSTSpringForward(t *testing.T) {
	// Berlin 2025-03-30: clocks jump 02:00→03:00, the day is 23h long.
	// At 10:00 on the 29th, target 09:00 has passed → 09:00 on the 30th,
	// which must use the post-transition offset (UTC+2), i.e. 07:00 UTC.
	nowUTC := mustLocalUTC(t, "Europe/Berlin", 2025, time.March, 29, 10, 0)
	next, err := NextPromptTime(9, 0, "Europe/Berlin", nowUTC)
	if err != nil {
		t.Fatalf("NextPromptTime: %v", err)
	}
	want := time.Date(2025, time.March, 30, 7, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
}

func TestNextPromptTime_AcrossDSTFallBack(t *testing.T) {
	// Berlin 2025-10-26: clocks fall back, the day is 25h long.
	nowUTC := mustLocalUTC(t, "Europe/Berlin", 2025, time.October, 25, 12, 0)
	next, err := NextPromptTime(9, 0, "Europe/Berlin", nowUTC)
	if err != nil {
		t.Fatalf("NextPromptTime: %v", err)
	}
	// 09:00 CET on the 26th = 08:00 UTC (offset back to UTC+1).
	want := time.Date(2025, time.October, 26, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
}

func TestNextPromptTime_BadTimezone(t *testing.T) {
	_, err := NextPromptTime(9, 0, "Mars/Olympus", time.Now().UTC())
	if !errors.Is(err, ErrBadTimezone) {
		t.Fatalf("want ErrBadTimezone, got %v", err)
	}
}

func TestNextPromptTime_UTCZone(t *testing.T) {
	now := time.Date(2025, time.May, 5, 23, 59, 0, 0, time.UTC)
	next, err := NextPromptTime(0, 0, "UTC", now)
	if err != nil {
		t.Fatalf("NextPromptTime: %v", err)
	}
	want := time.Date(2025, time.May, 6, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
}
