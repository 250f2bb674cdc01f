// Package calendar mirrors appointments into an external calendar provider and
// reads busy blocks back from it. Every call is optional: the dispatch engine
// runs unchanged with Noop.
package calendar

import (
	"context"
	"time"

	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/availability"
)

type Event struct {
	// ID is empty when creating.
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Tentative   bool
	Attendees   []Attendee
}

type Attendee struct {
	Email       string
	DisplayName string
}

type EventResult struct {
	ID          string
	MeetingLink string
}

type Calendar interface {
	// FreeBusy returns busy intervals keyed by calendar id.
	FreeBusy(ctx context.Context, calendarIDs []string, start, end time.Time) (map[string][]availability.Interval, error)
	// UpsertEvent creates the event when ev.ID is empty and updates it otherwise.
	UpsertEvent(ctx context.Context, calendarID string, ev Event) (EventResult, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// Noop is the calendar used when no provider is configured.
type Noop struct{}

func (Noop) FreeBusy(context.Context, []string, time.Time, time.Time) (map[string][]availability.Interval, error) {
	return map[string][]availability.Interval{}, nil
}

func (Noop) UpsertEvent(_ context.Context, _ string, ev Event) (EventResult, error) {
	return EventResult{ID: ev.ID}, nil
}

func (Noop) DeleteEvent(context.Context, string, string) error {
	return nil
}
