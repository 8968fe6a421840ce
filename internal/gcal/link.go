// Package gcal builds "add to Google Calendar" links. No network calls are
// made; this is pure URL construction.
package gcal

import (
	"net/url"
	"time"
)

const (
	renderEndpoint = "https://calendar.google.com/calendar/render"

	// compactUTC is the timestamp form the render endpoint expects.
	compactUTC = "20060102T150405Z"
)

// EventLink returns a one-click "add event" URL for the Google Calendar web
// UI. Title is assumed non-empty after trim (the admin form enforces this);
// location and details are optional and included as given. All parameters
// are percent-encoded.
func EventLink(title string, start, end time.Time, location, details string) string {
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", title)
	q.Set("dates", start.UTC().Format(compactUTC)+"/"+end.UTC().Format(compactUTC))
	if location != "" {
		q.Set("location", location)
	}
	if details != "" {
		q.Set("details", details)
	}
	return renderEndpoint + "?" + q.Encode()
}
