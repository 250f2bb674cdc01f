package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/calendar"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/metrics"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

type MeetingRequest struct {
	UserID       uuid.UUID
	TechnicianID uuid.UUID
	Start        time.Time
	End          time.Time
	Priority     model.Priority
	RequestText  string
	// HoldID releases the caller's own live hold in the booking transaction.
	HoldID *uuid.UUID
}

type EarliestMeetingRequest struct {
	UserID      uuid.UUID
	Skill       string
	Duration    time.Duration
	Priority    model.Priority
	RequestText string
}

// CreateMeeting commits an appointment. The calendar mirror runs after the
// commit and never undoes it.
func (s *Service) CreateMeeting(ctx context.Context, req MeetingRequest) (_ model.Appointment, err error) {
	ctx, finish := s.startOp(ctx, "book",
		attribute.String("technician_id", req.TechnicianID.String()),
		attribute.String("priority", string(req.Priority)),
	)
	defer finish(&err)

	start, end := req.Start.UTC(), req.End.UTC()
	if !end.After(start) {
		return model.Appointment{}, model.ErrInvalidRange
	}
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityP3
	}
	if !priority.Valid() {
		return model.Appointment{}, fmt.Errorf("priority %q: %w", req.Priority, model.ErrInvalidInput)
	}

	user, err := s.store.GetUser(ctx, req.UserID)
	if err != nil {
		return model.Appointment{}, err
	}
	tech, err := s.store.GetTechnician(ctx, req.TechnicianID)
	if err != nil {
		return model.Appointment{}, err
	}

	appt, err := s.store.InsertAppointment(ctx, model.Appointment{
		UserID:       user.ID,
		TechnicianID: tech.ID,
		Start:        start,
		End:          end,
		Priority:     priority,
		Status:       model.StatusScheduled,
		RequestText:  req.RequestText,
	}, req.HoldID, s.clock())
	if err != nil {
		return model.Appointment{}, err
	}
	metrics.AppointmentsBooked.WithLabelValues(string(priority)).Inc()
	s.logger.InfoContext(ctx, "appointment booked",
		"appointment_id", appt.ID, "appointment_no", appt.Number, "technician_id", tech.ID, "start", appt.Start, "end", appt.End)

	if tech.CalendarID != "" {
		appt = s.mirror(ctx, tech, user, appt)
	}
	return appt, nil
}

// CreateEarliestMeeting books the earliest slot found at commit time.
func (s *Service) CreateEarliestMeeting(ctx context.Context, req EarliestMeetingRequest) (model.Appointment, error) {
	slot, ok, err := s.NearestAvailable(ctx, NearestQuery{
		Skill:    req.Skill,
		Duration: req.Duration,
		Priority: req.Priority,
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if !ok {
		return model.Appointment{}, model.ErrNoAvailability
	}
	return s.CreateMeeting(ctx, MeetingRequest{
		UserID:       req.UserID,
		TechnicianID: slot.TechnicianID,
		Start:        slot.Start,
		End:          slot.End,
		Priority:     req.Priority,
		RequestText:  req.RequestText,
	})
}

// mirror upserts the calendar event and stores its id and link. Failures are
// logged and the appointment is returned unchanged.
func (s *Service) mirror(ctx context.Context, tech model.Technician, user model.User, appt model.Appointment) model.Appointment {
	res, err := s.calendar.UpsertEvent(ctx, tech.CalendarID, eventFor(tech, user, appt))
	if err != nil {
		s.degraded(ctx, "upsert_event", err, "appointment_id", appt.ID)
		return appt
	}
	if res.ID == appt.CalendarEventID && res.MeetingLink == appt.MeetingLink {
		return appt
	}
	if err := s.store.SetCalendarEvent(ctx, appt.ID, res.ID, res.MeetingLink); err != nil {
		s.degraded(ctx, "store_event", err, "appointment_id", appt.ID)
		return appt
	}
	appt.CalendarEventID = res.ID
	appt.MeetingLink = res.MeetingLink
	return appt
}

func eventFor(tech model.Technician, user model.User, appt model.Appointment) calendar.Event {
	text := appt.RequestText
	if strings.TrimSpace(text) == "" {
		text = "Plumbing appointment"
	}
	ev := calendar.Event{
		ID:          appt.CalendarEventID,
		Summary:     "Service: " + text,
		Description: fmt.Sprintf("Priority %s, #%d, %s (%s)", appt.Priority, appt.Number, user.FullName, user.Phone),
		Location:    appt.AddressLine(),
		Start:       appt.Start,
		End:         appt.End,
		TimeZone:    tech.Timezone,
	}
	if user.Email != "" {
		ev.Attendees = []calendar.Attendee{{Email: user.Email, DisplayName: user.FullName}}
	}
	return ev
}
