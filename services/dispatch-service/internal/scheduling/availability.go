package scheduling

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/availability"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/metrics"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

const (
	SourceInternal         = "internal"
	SourceInternalExternal = "internal+external"
)

type AvailabilityQuery struct {
	Skill    string
	Duration time.Duration
	Priority model.Priority
	// WindowStart defaults to now; WindowEnd defaults to WindowStart plus the priority horizon.
	WindowStart          time.Time
	WindowEnd            time.Time
	Limit                int
	ConsiderExternalBusy bool
}

type Slot struct {
	TechnicianID uuid.UUID
	Start        time.Time
	End          time.Time
	Source       string
}

type NearestQuery struct {
	Skill                string
	Duration             time.Duration
	Priority             model.Priority
	After                time.Time
	ConsiderExternalBusy bool
}

// GetAvailableTimes returns candidate slots ordered by start. A non-positive
// duration or limit and an unknown skill all yield an empty result.
func (s *Service) GetAvailableTimes(ctx context.Context, q AvailabilityQuery) (_ []Slot, err error) {
	ctx, finish := s.startOp(ctx, "availability",
		attribute.String("skill", q.Skill),
		attribute.String("priority", string(q.Priority)),
		attribute.Int("limit", q.Limit),
	)
	defer finish(&err)

	slots, source, err := s.availableTimes(ctx, q)
	if err != nil {
		return nil, err
	}
	metrics.AvailabilityQueries.WithLabelValues(source).Inc()
	metrics.SlotsReturned.Observe(float64(len(slots)))
	return slots, nil
}

func (s *Service) availableTimes(ctx context.Context, q AvailabilityQuery) ([]Slot, string, error) {
	if q.Duration <= 0 || q.Limit <= 0 {
		return nil, "empty", nil
	}
	now := s.clock()
	window, err := s.resolveWindow(q, now)
	if err != nil {
		return nil, "", err
	}

	skill := strings.TrimSpace(q.Skill)
	if skill == "" {
		return nil, "empty", nil
	}
	techs, err := s.store.ActiveTechniciansWithSkill(ctx, skill)
	if err != nil {
		return nil, "", err
	}
	if len(techs) == 0 {
		return nil, "empty", nil
	}

	ids := make([]uuid.UUID, 0, len(techs))
	for _, t := range techs {
		ids = append(ids, t.ID)
	}
	shifts, err := s.store.ListShifts(ctx, ids, window)
	if err != nil {
		return nil, "", err
	}
	if len(shifts) == 0 {
		return nil, "empty", nil
	}
	shiftsByTech := make(map[uuid.UUID][]availability.Interval, len(techs))
	for _, sh := range shifts {
		shiftsByTech[sh.TechnicianID] = append(shiftsByTech[sh.TechnicianID], availability.Interval{Start: sh.Start, End: sh.End})
	}

	busy, err := s.store.ListBusy(ctx, ids, window, now)
	if err != nil {
		return nil, "", err
	}
	if busy == nil {
		busy = make(map[uuid.UUID][]availability.Interval)
	}

	source := SourceInternal
	if q.ConsiderExternalBusy && s.mergeExternalBusy(ctx, techs, window, busy) {
		source = SourceInternalExternal
	}

	var out []Slot
	for _, t := range techs {
		remaining := q.Limit - len(out)
		if remaining <= 0 {
			break
		}
		var free []availability.Interval
		for _, sh := range shiftsByTech[t.ID] {
			clipped, ok := availability.Clip(sh, window)
			if !ok {
				continue
			}
			free = append(free, availability.Subtract(clipped, busy[t.ID])...)
		}
		// Overlapping shifts would otherwise offer slots that cannot both be booked.
		availability.SortByStart(free)
		free = availability.Merge(free)
		for _, iv := range availability.SplitIntoSlots(free, q.Duration, remaining) {
			out = append(out, Slot{TechnicianID: t.ID, Start: iv.Start, End: iv.End, Source: source})
		}
	}

	// Stable keeps technician order for equal starts.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, source, nil
}

func (s *Service) resolveWindow(q AvailabilityQuery, now time.Time) (availability.Interval, error) {
	start := q.WindowStart
	if start.IsZero() {
		start = now
	}
	end := q.WindowEnd
	if end.IsZero() {
		end = start.Add(s.horizons.For(q.Priority))
	}
	w := availability.Interval{Start: start.UTC(), End: end.UTC()}
	if w.Empty() {
		return availability.Interval{}, model.ErrInvalidRange
	}
	return w, nil
}

// mergeExternalBusy folds provider busy blocks into busy and reports whether
// the provider was actually consulted successfully.
func (s *Service) mergeExternalBusy(ctx context.Context, techs []model.Technician, window availability.Interval, busy map[uuid.UUID][]availability.Interval) bool {
	byCalendar := make(map[string][]uuid.UUID)
	var calendarIDs []string
	for _, t := range techs {
		if t.CalendarID == "" {
			continue
		}
		if _, seen := byCalendar[t.CalendarID]; !seen {
			calendarIDs = append(calendarIDs, t.CalendarID)
		}
		byCalendar[t.CalendarID] = append(byCalendar[t.CalendarID], t.ID)
	}
	if len(calendarIDs) == 0 {
		return false
	}

	external, err := s.calendar.FreeBusy(ctx, calendarIDs, window.Start, window.End)
	if err != nil {
		s.degraded(ctx, "freebusy", err, "calendars", len(calendarIDs))
		return false
	}
	for calID, ivs := range external {
		for _, techID := range byCalendar[calID] {
			busy[techID] = append(busy[techID], ivs...)
		}
	}
	return true
}

// NearestAvailable returns the earliest slot within seven days of q.After.
// ok is false when nothing is free.
func (s *Service) NearestAvailable(ctx context.Context, q NearestQuery) (Slot, bool, error) {
	after := q.After
	if after.IsZero() {
		after = s.clock()
	}
	slots, err := s.GetAvailableTimes(ctx, AvailabilityQuery{
		Skill:                q.Skill,
		Duration:             q.Duration,
		Priority:             q.Priority,
		WindowStart:          after,
		WindowEnd:            after.Add(nearestHorizon),
		Limit:                nearestLimit,
		ConsiderExternalBusy: q.ConsiderExternalBusy,
	})
	if err != nil {
		return Slot{}, false, err
	}
	if len(slots) == 0 {
		return Slot{}, false, nil
	}
	return slots[0], true, nil
}
