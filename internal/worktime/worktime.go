// Package worktime computes worked duration net of a site's daily break window.
package worktime

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	minutesPerDay = 24 * 60
	// MaxBreakMinutes bounds how far a break end may be from its start, wrapping midnight included.
	MaxBreakMinutes = 4 * 60
)

var (
	ErrBadClock     = errors.New("time must be HH:MM")
	ErrBreakTooLong = fmt.Errorf("break end must be after start and within %d minutes", MaxBreakMinutes)
)

// Window is a daily time-of-day interval in minutes since midnight. End may be
// numerically smaller than Start when the window wraps past midnight.
type Window struct {
	Start int
	End   int
}

// ParseClock parses "HH:MM" (hour may be one digit) into minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 {
		return 0, ErrBadClock
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, ErrBadClock
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, ErrBadClock
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseWindow validates a break window given as two HH:MM strings.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Window{}, err
	}
	w := Window{Start: s, End: e}
	if m := w.Minutes(); m == 0 || m > MaxBreakMinutes {
		return Window{}, ErrBreakTooLong
	}
	return w, nil
}

// Minutes is the window length; zero means the site has no break.
func (w Window) Minutes() int {
	return ((w.End-w.Start)%minutesPerDay + minutesPerDay) % minutesPerDay
}

func (w Window) String() string {
	return FormatClock(w.Start) + "-" + FormatClock(w.End)
}

// Result of a duration computation. Anomaly is set when check-out is not after check-in.
type Result struct {
	Hours         float64
	BreakDeducted bool
	Anomaly       bool
}

// Compute returns the hours between in and out, less the whole break when the
// interval overlaps any daily occurrence of the window in loc. The break is
// deducted at most once and the result is floored at zero and rounded to 2 decimals.
func Compute(in, out time.Time, w Window, loc *time.Location) Result {
	raw := out.Sub(in).Hours()
	if raw <= 0 {
		return Result{Anomaly: true}
	}

	var deducted bool
	if w.Minutes() > 0 && Overlaps(in, out, w, loc) {
		raw -= float64(w.Minutes()) / 60
		deducted = true
	}
	if raw < 0 {
		raw = 0
	}
	return Result{Hours: round2(raw), BreakDeducted: deducted}
}

// Overlaps reports whether [in, out] touches a break occurrence: the interval
// contains it, starts inside [start, end), or ends inside (start, end].
func Overlaps(in, out time.Time, w Window, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	in, out = in.In(loc), out.In(loc)
	length := time.Duration(w.Minutes()) * time.Minute

	// A wrapping window that started the previous evening can cover the check-in.
	y, m, d := in.Date()
	for day := time.Date(y, m, d-1, 0, 0, 0, 0, loc); !day.After(out); day = day.AddDate(0, 0, 1) {
		bs := day.Add(time.Duration(w.Start) * time.Minute)
		be := bs.Add(length)
		switch {
		case !in.After(bs) && !out.Before(be):
			return true
		case !in.Before(bs) && in.Before(be):
			return true
		case out.After(bs) && !out.After(be):
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
