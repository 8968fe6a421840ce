package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"centercal/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func insertEvent(t *testing.T, st *SQLiteStore, title string, start time.Time) model.Event {
	t.Helper()
	ev := model.Event{
		Title: title,
		Start: start,
		End:   start.Add(time.Hour),
		Venue: "Main Hall",
	}
	require.NoError(t, st.Insert(context.Background(), &ev))
	return ev
}

func TestInsertAssignsIDAndCreatedAt(t *testing.T) {
	st := newTestStore(t)

	ev := insertEvent(t, st, "Welcome BBQ", time.Date(2025, 9, 5, 17, 0, 0, 0, time.UTC))
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.CreatedAt.IsZero())
}

func TestGetByID(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2025, 9, 5, 17, 0, 0, 0, time.UTC)
	created := insertEvent(t, st, "Welcome BBQ", start)

	got, err := st.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Welcome BBQ", got.Title)
	assert.Equal(t, "Main Hall", got.Venue)
	assert.True(t, got.Start.Equal(start))
	assert.True(t, got.End.Equal(start.Add(time.Hour)))
}

func TestGetByIDNotFound(t *testing.T) {
	st := newTestStore(t)

	_, err := st.GetByID(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUpcomingFiltersAndOrders(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	insertEvent(t, st, "Past", now.AddDate(0, 0, -1))
	later := insertEvent(t, st, "Later", now.AddDate(0, 0, 5))
	sooner := insertEvent(t, st, "Sooner", now.AddDate(0, 0, 2))

	events, err := st.ListUpcoming(ctx, now)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, sooner.ID, events[0].ID)
	assert.Equal(t, later.ID, events[1].ID)
}

func TestListUpcomingIncludesBoundary(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	atBoundary := insertEvent(t, st, "Starts now", now)

	events, err := st.ListUpcoming(ctx, now)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, atBoundary.ID, events[0].ID)
}

func TestListBetween(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	dayStart := time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	insertEvent(t, st, "Day before", dayStart.Add(-2*time.Hour))
	inDay := insertEvent(t, st, "In day", dayStart.Add(10*time.Hour))
	insertEvent(t, st, "Exactly at end", dayEnd) // excluded: half-open interval

	events, err := st.ListBetween(ctx, dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, inDay.ID, events[0].ID)
}

func TestListUpcomingEmpty(t *testing.T) {
	st := newTestStore(t)

	events, err := st.ListUpcoming(context.Background(), time.Now())
	require.NoError(t, err)
	require.NotNil(t, events)
	assert.Empty(t, events)
}
