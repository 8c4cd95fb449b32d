package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"09:00", 9, 0, true},
		{"23:59", 23, 59, true},
		{"0:5", 0, 5, true},
		{" 12:30 ", 12, 30, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"12", 0, 0, false},
		{"12:30:00", 0, 0, false},
		{"ab:cd", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, c := range cases {
		h, m, err := ParseClock(c.in)
		if c.ok {
			if err != nil {
				t.Errorf("ParseClock(%q) unexpected error: %v", c.in, err)
				continue
			}
			if h != c.hour || m != c.minute {
				t.Errorf("ParseClock(%q) = %d:%d, want %d:%d", c.in, h, m, c.hour, c.minute)
			}
		} else if err == nil {
			t.Errorf("ParseClock(%q) expected error, got %d:%d", c.in, h, m)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := FormatClock(9, 5); got != "09:05" {
		t.Errorf("FormatClock(9, 5) = %q, want %q", got, "09:05")
	}
}

func TestValidateTZ(t *testing.T) {
	name, err := ValidateTZ(" Europe/Moscow ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Europe/Moscow" {
		t.Errorf("got %q, want Europe/Moscow", name)
	}

	if _, err := ValidateTZ("Mars/Olympus"); !errors.Is(err, ErrBadTimezone) {
		t.Errorf("expected ErrBadTimezone, got %v", err)
	}
}

func TestLocalizeTime(t *testing.T) {
	utc := time.Date(2025, time.June, 10, 6, 0, 0, 0, time.UTC)
	got, err := LocalizeTime(utc, "Europe/Moscow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "10 Jun 09:00" {
		t.Errorf("got %q, want %q", got, "10 Jun 09:00")
	}
}
