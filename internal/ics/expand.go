package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"centercal/internal/logger"
	"centercal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig controls how recurrence expansion is performed during a feed
// import.
type ExpandConfig struct {
	// DisplayLocation is the timezone to which all occurrences will be
	// converted. If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent is a safety cap to avoid extremely large
	// expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded occurrences and information about
// truncation.
type ExpandResult struct {
	// Events are concrete occurrences ready for insertion. IDs are left
	// empty; the store assigns them.
	Events []model.Event
	// TruncatedUIDs records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedUIDs []string
}

// ExpandOccurrences turns parsed feed entries into concrete events within
// the given time range. It handles:
//
//   - Single non-recurring events
//   - RRULE-based recurrence (DAILY/WEEKLY/MONTHLY/YEARLY, etc.)
//   - EXDATE for exception removal
//   - All-day semantics
//
// All resulting events are converted into the configured display timezone.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	out := make([]model.Event, 0)

	for _, ev := range events {
		if ev.RawRRule == "" {
			if occ, ok := expandSingleEvent(ev, cfg); ok {
				out = append(out, occ)
			}
			continue
		}

		occ, hitCap := expandRecurringEvent(ev, cfg)
		out = append(out, occ...)
		if hitCap {
			result.TruncatedUIDs = append(result.TruncatedUIDs, ev.UID)
			logger.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	result.Events = out
	return result, nil
}

func expandSingleEvent(ev ParsedEvent, cfg ExpandConfig) (model.Event, bool) {
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return model.Event{}, false
	}
	return makeOccurrence(ev, ev.Start, ev.End, cfg.DisplayLocation), true
}

func expandRecurringEvent(ev ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	out := make([]model.Event, 0)
	hitCap := false

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		logger.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}

	// Ensure Dtstart is set to the event's DTSTART.
	r.DTStart(ev.Start)

	// Build a set so we can apply EXDATE.
	var set rrule.Set
	set.RRule(r)

	for _, ex := range ev.ExDates {
		// Best effort: align EXDATE location with the event's start.
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Adjust range into the event's original location for Between().
	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())

	occTimes := set.Between(rangeStart, rangeEnd, true)

	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			// All-day: treat as [date 00:00, next day 00:00) in the event's
			// timezone.
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.Add(24 * time.Hour)
		} else {
			// Preserve the original duration.
			occEnd = occStart.Add(ev.End.Sub(ev.Start))
		}

		out = append(out, makeOccurrence(ev, occStart, occEnd, cfg.DisplayLocation))
	}

	return out, hitCap
}

// makeOccurrence converts a ParsedEvent plus a concrete start/end into an
// insertable event normalized into displayLoc.
func makeOccurrence(ev ParsedEvent, start, end time.Time, displayLoc *time.Location) model.Event {
	return model.Event{
		Title: ev.Summary,
		Venue: ev.Location,
		Start: start.In(displayLoc),
		End:   end.In(displayLoc),
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}
