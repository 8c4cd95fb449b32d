package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrBadTimezone means the stored timezone name is not resolvable by the
// runtime's zone database. Treated as a configuration error by callers.
var ErrBadTimezone = errors.New("unknown timezone")

// NextPromptTime computes the next daily-prompt instant (UTC) for a user
// preferring hour:minute local time in tz.
//
// The target is built on today's calendar date in the user's zone; if it is
// at or before "now" there, it moves to tomorrow. The day advance is local
// calendar arithmetic, so DST-shortened and -lengthened days stay anchored
// to the wall-clock time, and the UTC offset used is the one in effect on
// the target date, not the one at "now".
func NextPromptTime(hour, minute int, tz string, now time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimezone, tz)
	}

	localNow := now.In(loc)
	target := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), hour, minute, 0, 0, loc)

	// A target equal to now counts as already passed.
	if !target.After(localNow) {
		tomorrow := localNow.AddDate(0, 0, 1)
		target = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, minute, 0, 0, loc)
	}

	return target.UTC(), nil
}
