// Package timegrid computes calendar-week coordinates for laying events out
// in a week grid. All functions are pure; clamping to a display window is
// left to PositionInWindow, which takes the window as an explicit parameter.
package timegrid

import "time"

// WeekStart selects which weekday opens the week in calendar views.
type WeekStart int

const (
	WeekStartSunday WeekStart = iota
	WeekStartMonday
)

// ParseWeekStart maps the config values ("sunday", "monday") to a WeekStart.
// Unknown values fall back to Monday, matching config normalization.
func ParseWeekStart(s string) WeekStart {
	if s == "sunday" {
		return WeekStartSunday
	}
	return WeekStartMonday
}

func (w WeekStart) weekday() time.Weekday {
	if w == WeekStartSunday {
		return time.Sunday
	}
	return time.Monday
}

// StartOfWeek returns midnight (in t's location) of the first day of the
// week containing t. Weeks are half-open intervals [start, start+7d), so an
// instant exactly at a week boundary belongs to the week starting at it.
func StartOfWeek(t time.Time, ws WeekStart) time.Time {
	back := (int(t.Weekday()) - int(ws.weekday()) + 7) % 7
	day := t.AddDate(0, 0, -back)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfWeek returns the exclusive upper bound of t's week:
// StartOfWeek + 7 days.
func EndOfWeek(t time.Time, ws WeekStart) time.Time {
	return StartOfWeek(t, ws).AddDate(0, 0, 7)
}

// DayColumnIndex returns t's day offset from the start of its week, in
// [0, 6], wrapping across the configured week start.
func DayColumnIndex(t time.Time, ws WeekStart) int {
	return (int(t.Weekday()) - int(ws.weekday()) + 7) % 7
}

// MinutesSinceMidnight returns the minute of day for t in its own location,
// in [0, 1440).
func MinutesSinceMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Window is the visible portion of a day in the week grid. It is a
// presentation policy supplied by the caller, not part of the raw grid math.
type Window struct {
	// StartHour / EndHour bound the visible hours; EndHour is exclusive.
	StartHour int
	EndHour   int
	// MinSpanMinutes stretches very short events to a readable height.
	MinSpanMinutes int
}

// Position places an event's start/end inside a window as a column plus
// top/bottom fractions of the window height. Start and end are clipped to
// the window; events entirely outside it collapse to a zero-height span at
// the nearer edge. Fractions satisfy 0 <= top <= bottom <= 1.
type Position struct {
	Col        int
	TopFrac    float64
	BottomFrac float64
}

// PositionInWindow computes the grid position for an event spanning
// [start, end) on start's day column. Both instants should already be in
// the display timezone.
func PositionInWindow(start, end time.Time, ws WeekStart, win Window) Position {
	winStart := win.StartHour * 60
	winEnd := win.EndHour * 60
	span := winEnd - winStart

	top := clamp(MinutesSinceMidnight(start)-winStart, 0, span)
	bottom := clamp(MinutesSinceMidnight(end)-winStart, 0, span)
	if bottom < top {
		bottom = top
	}

	// Enforce the minimum visual span when the event is at least partly
	// visible, keeping the bottom inside the window.
	if bottom > top || (top > 0 && top < span) {
		if bottom-top < win.MinSpanMinutes {
			bottom = top + win.MinSpanMinutes
			if bottom > span {
				bottom = span
				top = bottom - win.MinSpanMinutes
				if top < 0 {
					top = 0
				}
			}
		}
	}

	return Position{
		Col:        DayColumnIndex(start, ws),
		TopFrac:    float64(top) / float64(span),
		BottomFrac: float64(bottom) / float64(span),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
