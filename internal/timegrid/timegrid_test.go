package timegrid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		ws   WeekStart
		want time.Time
	}{
		{
			name: "monday week, midweek instant",
			in:   time.Date(2025, 1, 8, 14, 0, 0, 0, time.UTC),
			ws:   WeekStartMonday,
			want: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday week, instant exactly at boundary",
			in:   time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
			ws:   WeekStartMonday,
			want: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday week, sunday belongs to previous monday",
			in:   time.Date(2025, 1, 12, 23, 59, 0, 0, time.UTC),
			ws:   WeekStartMonday,
			want: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday week, same sunday",
			in:   time.Date(2025, 1, 12, 10, 0, 0, 0, time.UTC),
			ws:   WeekStartSunday,
			want: time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday week, saturday wraps back",
			in:   time.Date(2025, 1, 11, 10, 0, 0, 0, time.UTC),
			ws:   WeekStartSunday,
			want: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartOfWeek(tt.in, tt.ws)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestEndOfWeekIsStartPlusSevenDays(t *testing.T) {
	instants := []time.Time{
		time.Date(2025, 1, 8, 14, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
	}

	for _, in := range instants {
		for _, ws := range []WeekStart{WeekStartSunday, WeekStartMonday} {
			start := StartOfWeek(in, ws)
			end := EndOfWeek(in, ws)
			assert.True(t, end.Equal(start.AddDate(0, 0, 7)), "instant %v ws %v", in, ws)
		}
	}
}

func TestDayColumnIndex(t *testing.T) {
	// Week starting Monday 2025-01-06: Wednesday 2025-01-08 is column 2.
	wed := time.Date(2025, 1, 8, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, DayColumnIndex(wed, WeekStartMonday))

	// Same instant with a Sunday-start week: Wednesday is column 3.
	assert.Equal(t, 3, DayColumnIndex(wed, WeekStartSunday))

	// Sunday wraps to the last column of a Monday week.
	sun := time.Date(2025, 1, 12, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 6, DayColumnIndex(sun, WeekStartMonday))
	assert.Equal(t, 0, DayColumnIndex(sun, WeekStartSunday))
}

func TestDayColumnIndexAgreesWithStartOfWeek(t *testing.T) {
	// Property: start-of-week plus the column index lands on the same
	// calendar day as the instant itself.
	base := time.Date(2025, 3, 1, 13, 30, 0, 0, time.UTC)
	for day := 0; day < 14; day++ {
		in := base.AddDate(0, 0, day)
		for _, ws := range []WeekStart{WeekStartSunday, WeekStartMonday} {
			col := DayColumnIndex(in, ws)
			require.GreaterOrEqual(t, col, 0)
			require.LessOrEqual(t, col, 6)

			onCol := StartOfWeek(in, ws).AddDate(0, 0, col)
			assert.Equal(t, in.Year(), onCol.Year())
			assert.Equal(t, in.YearDay(), onCol.YearDay())
		}
	}
}

func TestMinutesSinceMidnight(t *testing.T) {
	assert.Equal(t, 0, MinutesSinceMidnight(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 14*60, MinutesSinceMidnight(time.Date(2025, 1, 1, 14, 0, 0, 0, time.UTC)))
	assert.Equal(t, 23*60+59, MinutesSinceMidnight(time.Date(2025, 1, 1, 23, 59, 59, 0, time.UTC)))
}

func TestPositionInWindow(t *testing.T) {
	win := Window{StartHour: 8, EndHour: 20, MinSpanMinutes: 30}
	day := func(h, m int) time.Time {
		return time.Date(2025, 1, 8, h, m, 0, 0, time.UTC) // Wednesday
	}

	t.Run("event inside window", func(t *testing.T) {
		pos := PositionInWindow(day(14, 0), day(16, 0), WeekStartMonday, win)
		assert.Equal(t, 2, pos.Col)
		assert.InDelta(t, 0.5, pos.TopFrac, 1e-9)    // 14:00 is halfway through 08-20
		assert.InDelta(t, 2.0/3.0, pos.BottomFrac, 1e-9)
	})

	t.Run("start before window clips to top", func(t *testing.T) {
		pos := PositionInWindow(day(7, 0), day(9, 0), WeekStartMonday, win)
		assert.InDelta(t, 0.0, pos.TopFrac, 1e-9)
		assert.InDelta(t, 1.0/12.0, pos.BottomFrac, 1e-9)
	})

	t.Run("end after window clips to bottom", func(t *testing.T) {
		pos := PositionInWindow(day(19, 0), day(22, 0), WeekStartMonday, win)
		assert.InDelta(t, 11.0/12.0, pos.TopFrac, 1e-9)
		assert.InDelta(t, 1.0, pos.BottomFrac, 1e-9)
	})

	t.Run("event entirely before window collapses", func(t *testing.T) {
		pos := PositionInWindow(day(6, 0), day(7, 0), WeekStartMonday, win)
		assert.Equal(t, pos.TopFrac, pos.BottomFrac)
		assert.InDelta(t, 0.0, pos.TopFrac, 1e-9)
	})

	t.Run("short event stretches to minimum span", func(t *testing.T) {
		pos := PositionInWindow(day(10, 0), day(10, 10), WeekStartMonday, win)
		got := (pos.BottomFrac - pos.TopFrac) * float64((win.EndHour-win.StartHour)*60)
		assert.InDelta(t, float64(win.MinSpanMinutes), got, 1e-9)
	})

	t.Run("ordering invariant", func(t *testing.T) {
		pos := PositionInWindow(day(9, 15), day(9, 45), WeekStartMonday, win)
		assert.GreaterOrEqual(t, pos.TopFrac, 0.0)
		assert.LessOrEqual(t, pos.BottomFrac, 1.0)
		assert.LessOrEqual(t, pos.TopFrac, pos.BottomFrac)
	})
}
