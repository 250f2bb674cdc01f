package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/availability"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/metrics"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

// Clock is a local wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) Valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

// ParseClock accepts "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return Clock{}, fmt.Errorf("clock %q: %w", s, model.ErrInvalidInput)
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, nil
}

type PublishRequest struct {
	TechnicianID uuid.UUID
	// StartDate and EndDate are inclusive calendar days; only Y/M/D are used.
	StartDate  time.Time
	EndDate    time.Time
	StartClock Clock
	EndClock   Clock
	// Weekdays filters the days; empty means every day.
	Weekdays      []time.Weekday
	ClearOverlaps bool
}

// PublishAvailability expands a weekly template into concrete UTC shifts in
// the technician's own timezone and returns how many were written.
func (s *Service) PublishAvailability(ctx context.Context, req PublishRequest) (_ int, err error) {
	ctx, finish := s.startOp(ctx, "publish", attribute.String("technician_id", req.TechnicianID.String()))
	defer finish(&err)

	shifts, err := s.expandTemplate(ctx, req)
	if err != nil {
		return 0, err
	}
	if len(shifts) == 0 {
		return 0, nil
	}
	n, err := s.store.PublishShifts(ctx, req.TechnicianID, shifts, req.ClearOverlaps)
	if err != nil {
		return 0, err
	}
	metrics.ShiftsPublished.Add(float64(n))
	s.logger.InfoContext(ctx, "shifts published", "technician_id", req.TechnicianID, "count", n, "clear_overlaps", req.ClearOverlaps)
	return n, nil
}

func (s *Service) expandTemplate(ctx context.Context, req PublishRequest) ([]availability.Interval, error) {
	first := civilDate(req.StartDate)
	last := civilDate(req.EndDate)
	if last.Before(first) {
		return nil, model.ErrInvalidRange
	}
	if !req.StartClock.Valid() || !req.EndClock.Valid() {
		return nil, model.ErrInvalidInput
	}
	if req.EndClock.minutes() <= req.StartClock.minutes() {
		return nil, model.ErrInvalidRange
	}

	tech, err := s.store.GetTechnician(ctx, req.TechnicianID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(tech.Timezone)
	if err != nil {
		return nil, fmt.Errorf("technician timezone %q: %w", tech.Timezone, model.ErrInvalidInput)
	}

	wanted := make(map[time.Weekday]bool, len(req.Weekdays))
	for _, d := range req.Weekdays {
		wanted[d] = true
	}

	var out []availability.Interval
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if len(wanted) > 0 && !wanted[d.Weekday()] {
			continue
		}
		y, m, day := d.Date()
		start := time.Date(y, m, day, req.StartClock.Hour, req.StartClock.Minute, 0, 0, loc).UTC()
		end := time.Date(y, m, day, req.EndClock.Hour, req.EndClock.Minute, 0, 0, loc).UTC()
		if !end.After(start) {
			// A DST jump swallowed the whole local range.
			continue
		}
		out = append(out, availability.Interval{Start: start, End: end})
	}
	return out, nil
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
