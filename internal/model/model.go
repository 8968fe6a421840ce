package model

import "time"

// Event is a single scheduled event at the center. Events are owned by the
// backing store; everything else in this codebase only derives values from
// them and never mutates a stored record.
type Event struct {
	// ID is the store-assigned identifier.
	ID string `json:"id"`

	Title string `json:"title"`

	// Start / End are absolute instants. End >= Start is expected from the
	// admin form but not enforced here.
	Start time.Time `json:"start_ts"`
	End   time.Time `json:"end_ts"`

	// Venue is free text; empty means "to be determined".
	Venue string `json:"venue,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// DayGroup bundles the events whose start falls on one calendar day in the
// display timezone. Key is the ISO date, e.g. "2025-09-05".
type DayGroup struct {
	Key    string  `json:"day"`
	Events []Event `json:"events"`
}

// GridPosition places one event inside a week grid: a day column (0-6 from
// the configured week start) and a vertical span expressed as fractions of
// the display window.
type GridPosition struct {
	Col        int     `json:"col"`
	TopFrac    float64 `json:"top_frac"`
	BottomFrac float64 `json:"bottom_frac"`
}
