package ics

import (
	"strings"
	"time"

	"centercal/internal/model"
)

const (
	// ProdID identifies generated documents per RFC 5545 §3.7.3.
	ProdID = "-//Campus Multicultural Center//centercal//EN"

	// compactUTC is the UTC DATE-TIME form (RFC 5545 §3.3.5, form 2).
	compactUTC = "20060102T150405Z"

	// crlf is the required content-line terminator. Emitting bare LF is a
	// nonconformance that several importers reject.
	crlf = "\r\n"
)

// BuildEventCalendar serializes a single event as a complete VCALENDAR
// document. now becomes DTSTAMP and is the only non-deterministic input;
// callers that need reproducible output fix it.
func BuildEventCalendar(ev model.Event, uidDomain string, now time.Time) string {
	lines := calendarHeader()
	lines = append(lines, eventLines(ev, uidDomain, now)...)
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, crlf) + crlf
}

// BuildFeed serializes the given events as one VCALENDAR with one VEVENT
// per event, for the subscription endpoint.
func BuildFeed(events []model.Event, uidDomain string, now time.Time) string {
	lines := calendarHeader()
	for _, ev := range events {
		lines = append(lines, eventLines(ev, uidDomain, now)...)
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, crlf) + crlf
}

func calendarHeader() []string {
	return []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + ProdID,
		"CALSCALE:GREGORIAN",
	}
}

func eventLines(ev model.Event, uidDomain string, now time.Time) []string {
	return []string{
		"BEGIN:VEVENT",
		"UID:" + ev.ID + "@" + uidDomain,
		"DTSTAMP:" + now.UTC().Format(compactUTC),
		"DTSTART:" + ev.Start.UTC().Format(compactUTC),
		"DTEND:" + ev.End.UTC().Format(compactUTC),
		"SUMMARY:" + EscapeText(ev.Title),
		// LOCATION is always emitted; an absent venue yields an empty field.
		"LOCATION:" + EscapeText(ev.Venue),
		"END:VEVENT",
	}
}

// EscapeText escapes a TEXT property value per RFC 5545 §3.3.11.
// Backslash is escaped first so the backslashes introduced by the later
// substitutions are not escaped again.
func EscapeText(s string) string {
	// Normalize line endings before escaping.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
