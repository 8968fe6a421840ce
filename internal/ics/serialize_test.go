package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"centercal/internal/model"
)

const testUIDDomain = "events.centercal.local"

var fixedNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func bbqEvent() model.Event {
	return model.Event{
		ID:    "e1",
		Title: "Welcome BBQ",
		Start: time.Date(2025, 9, 5, 17, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 5, 19, 0, 0, 0, time.UTC),
		Venue: "Main Hall",
	}
}

func TestBuildEventCalendarFields(t *testing.T) {
	out := BuildEventCalendar(bbqEvent(), testUIDDomain, fixedNow)

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, out, "VERSION:2.0\r\n")
	assert.Contains(t, out, "PRODID:"+ProdID+"\r\n")
	assert.Contains(t, out, "CALSCALE:GREGORIAN\r\n")
	assert.Contains(t, out, "UID:e1@"+testUIDDomain+"\r\n")
	assert.Contains(t, out, "DTSTAMP:20250801T120000Z\r\n")
	assert.Contains(t, out, "DTSTART:20250905T170000Z\r\n")
	assert.Contains(t, out, "DTEND:20250905T190000Z\r\n")
	assert.Contains(t, out, "SUMMARY:Welcome BBQ\r\n")
	assert.Contains(t, out, "LOCATION:Main Hall\r\n")
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
}

func TestBuildEventCalendarExactlyOneVEvent(t *testing.T) {
	out := BuildEventCalendar(bbqEvent(), testUIDDomain, fixedNow)
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.Equal(t, 1, strings.Count(out, "END:VEVENT"))
}

func TestBuildEventCalendarCRLFThroughout(t *testing.T) {
	out := BuildEventCalendar(bbqEvent(), testUIDDomain, fixedNow)

	// Every line break is CRLF; no bare LF anywhere.
	stripped := strings.ReplaceAll(out, "\r\n", "")
	assert.NotContains(t, stripped, "\n")
	assert.NotContains(t, stripped, "\r")
}

func TestBuildEventCalendarEmptyVenue(t *testing.T) {
	ev := bbqEvent()
	ev.Venue = ""
	out := BuildEventCalendar(ev, testUIDDomain, fixedNow)
	assert.Contains(t, out, "LOCATION:\r\n")
}

func TestBuildEventCalendarStableUID(t *testing.T) {
	first := BuildEventCalendar(bbqEvent(), testUIDDomain, fixedNow)
	second := BuildEventCalendar(bbqEvent(), testUIDDomain, fixedNow.Add(time.Hour))

	extract := func(doc string) string {
		for _, line := range strings.Split(doc, "\r\n") {
			if strings.HasPrefix(line, "UID:") {
				return line
			}
		}
		return ""
	}
	assert.Equal(t, extract(first), extract(second))
}

func TestEscapeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text unchanged", "Welcome BBQ", "Welcome BBQ"},
		{"semicolon and comma", "Q&A; Session, Pt.1", `Q&A\; Session\, Pt.1`},
		{"backslash escaped first", `a\b`, `a\\b`},
		{"backslash before semicolon", `a\;b`, `a\\\;b`},
		{"newline", "line1\nline2", `line1\nline2`},
		{"crlf normalized", "line1\r\nline2", `line1\nline2`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeText(tt.in))
		})
	}
}

func TestBuildEventCalendarEscapesSummary(t *testing.T) {
	ev := bbqEvent()
	ev.Title = "Q&A; Session, Pt.1"
	out := BuildEventCalendar(ev, testUIDDomain, fixedNow)
	assert.Contains(t, out, `SUMMARY:Q&A\; Session\, Pt.1`+"\r\n")
}

func TestBuildEventCalendarRoundTrips(t *testing.T) {
	// The generated document must be importable: parse it back with the
	// same library the feed importer uses.
	out := BuildEventCalendar(bbqEvent(), testUIDDomain, fixedNow)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)

	ve := cal.Events()[0]
	start, err := ve.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2025, 9, 5, 17, 0, 0, 0, time.UTC)))

	end, err := ve.GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(time.Date(2025, 9, 5, 19, 0, 0, 0, time.UTC)))

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	require.NotNil(t, uid)
	assert.Equal(t, "e1@"+testUIDDomain, uid.Value)
}

func TestBuildFeed(t *testing.T) {
	second := bbqEvent()
	second.ID = "e2"
	second.Title = "Film Night"
	second.Venue = ""

	out := BuildFeed([]model.Event{bbqEvent(), second}, testUIDDomain, fixedNow)

	assert.Equal(t, 1, strings.Count(out, "BEGIN:VCALENDAR"))
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
	assert.Equal(t, 2, strings.Count(out, "END:VEVENT"))
	assert.Contains(t, out, "UID:e1@"+testUIDDomain)
	assert.Contains(t, out, "UID:e2@"+testUIDDomain)
}

func TestBuildFeedEmpty(t *testing.T) {
	out := BuildFeed(nil, testUIDDomain, fixedNow)
	assert.Equal(t, 0, strings.Count(out, "BEGIN:VEVENT"))
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
}
