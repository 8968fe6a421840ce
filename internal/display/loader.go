// Package display maintains the "today" snapshot shown on kiosk screens.
//
// The snapshot is a small state machine with three observable states:
// loading (no fetch has completed yet), failed (last fetch errored, with a
// message), and loaded (data present, possibly empty). Each refresh is an
// independent, cancellable fetch; a slow or failed refresh never corrupts a
// later one. Periodic refresh is scheduled separately (cron, in cmd).
package display

import (
	"context"
	"sync"
	"time"

	"centercal/internal/logger"
	"centercal/internal/model"
	"centercal/internal/observability"
	"centercal/internal/store"
)

// State is the observable snapshot state.
type State int

const (
	StateLoading State = iota
	StateFailed
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateFailed:
		return "failed"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Snapshot is one immutable view of today's events.
type Snapshot struct {
	State       State
	Message     string // set when State == StateFailed
	Events      []model.Event
	RefreshedAt time.Time
}

// Loader owns the snapshot and refreshes it from the store.
type Loader struct {
	store   store.Store
	loc     *time.Location
	metrics *observability.Metrics

	mu   sync.RWMutex
	snap Snapshot
}

// NewLoader creates a Loader in the loading state. metrics may be nil.
func NewLoader(st store.Store, loc *time.Location, metrics *observability.Metrics) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{
		store:   st,
		loc:     loc,
		metrics: metrics,
		snap:    Snapshot{State: StateLoading},
	}
}

// Snapshot returns the current snapshot. Safe for concurrent callers.
func (l *Loader) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Refresh fetches today's events and replaces the snapshot. "Today" is the
// calendar day containing now in the display timezone. A failed fetch
// records the failure message; the previous data is not kept, so the kiosk
// shows the failure rather than stale entries.
func (l *Loader) Refresh(ctx context.Context, now time.Time) {
	started := time.Now()

	local := now.In(l.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, l.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := l.store.ListBetween(ctx, dayStart, dayEnd)
	if err != nil {
		logger.Error("kiosk snapshot refresh failed", err)
		l.setSnapshot(Snapshot{
			State:       StateFailed,
			Message:     err.Error(),
			RefreshedAt: time.Now(),
		})
		l.observe("failure", started)
		return
	}

	l.setSnapshot(Snapshot{
		State:       StateLoaded,
		Events:      events,
		RefreshedAt: time.Now(),
	})
	l.observe("success", started)
	logger.Debug("kiosk snapshot refreshed", "event_count", len(events))
}

func (l *Loader) setSnapshot(snap Snapshot) {
	l.mu.Lock()
	l.snap = snap
	l.mu.Unlock()
}

func (l *Loader) observe(status string, started time.Time) {
	if l.metrics == nil {
		return
	}
	l.metrics.IncSnapshotRefresh(status)
	l.metrics.SnapshotRefreshDuration.Observe(time.Since(started).Seconds())
}
