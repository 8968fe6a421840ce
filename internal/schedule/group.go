// Package schedule derives presentation structures from stored events.
package schedule

import (
	"sort"
	"time"

	"centercal/internal/model"
)

// DayKeyLayout is the stable per-day key format used for grouping.
const DayKeyLayout = "2006-01-02"

// GroupByDay buckets events by the calendar day of their start instant in
// loc, returning groups sorted ascending by day key. Within a group, events
// are sorted ascending by start; the original relative order is preserved
// for equal starts. Empty input yields an empty (non-nil) slice.
func GroupByDay(events []model.Event, loc *time.Location) []model.DayGroup {
	if loc == nil {
		loc = time.Local
	}

	byDay := make(map[string][]model.Event)
	keys := make([]string, 0)

	for _, ev := range events {
		key := ev.Start.In(loc).Format(DayKeyLayout)
		if _, ok := byDay[key]; !ok {
			keys = append(keys, key)
		}
		byDay[key] = append(byDay[key], ev)
	}

	sort.Strings(keys)

	groups := make([]model.DayGroup, 0, len(keys))
	for _, key := range keys {
		evs := byDay[key]
		sort.SliceStable(evs, func(i, j int) bool {
			return evs[i].Start.Before(evs[j].Start)
		})
		groups = append(groups, model.DayGroup{Key: key, Events: evs})
	}
	return groups
}
