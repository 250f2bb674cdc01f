package scheduling

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/metrics"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

var publicNumberRe = regexp.MustCompile(`^#?(\d+)$`)

// resolveAppointment accepts a public number ("123" or "#123") or an
// appointment UUID. The number is tried first; a numeric ref that matches no
// number still gets a UUID parse.
func (s *Service) resolveAppointment(ctx context.Context, ref string) (model.Appointment, error) {
	ref = strings.TrimSpace(ref)

	if m := publicNumberRe.FindStringSubmatch(ref); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			appt, err := s.store.AppointmentByNumber(ctx, n)
			if err == nil {
				return appt, nil
			}
			if !errors.Is(err, model.ErrNotFound) {
				return model.Appointment{}, err
			}
		}
	}

	id, err := uuid.Parse(ref)
	if err != nil {
		return model.Appointment{}, model.NotFoundError("appointment", ref)
	}
	return s.store.AppointmentByID(ctx, id)
}

func (s *Service) ReadMeeting(ctx context.Context, ref string) (_ model.Appointment, err error) {
	ctx, finish := s.startOp(ctx, "read", attribute.String("ref", ref))
	defer finish(&err)
	return s.resolveAppointment(ctx, ref)
}

// UpdateMeeting applies a partial update. The storage layer keeps the
// technician block in step with the new range and status, so a reschedule
// into taken time fails with a *model.ConflictError. A mirrored calendar
// event is re-synced only after the write commits.
func (s *Service) UpdateMeeting(ctx context.Context, ref string, patch model.AppointmentPatch) (_ model.Appointment, err error) {
	ctx, finish := s.startOp(ctx, "update", attribute.String("ref", ref))
	defer finish(&err)

	if patch.Status != nil && !patch.Status.Valid() {
		return model.Appointment{}, fmt.Errorf("status %q: %w", *patch.Status, model.ErrInvalidInput)
	}
	before, err := s.resolveAppointment(ctx, ref)
	if err != nil {
		return model.Appointment{}, err
	}
	if patch.Empty() {
		return before, nil
	}
	if next := patch.Apply(before); !next.End.After(next.Start) {
		return model.Appointment{}, model.ErrInvalidRange
	}

	after, err := s.store.UpdateAppointment(ctx, before.ID, patch, s.clock())
	if err != nil {
		return model.Appointment{}, err
	}
	if before.Blocking() && !after.Blocking() {
		metrics.AppointmentsCanceled.Inc()
	}
	s.logger.InfoContext(ctx, "appointment updated",
		"appointment_id", after.ID, "appointment_no", after.Number, "status", after.Status)

	return s.resync(ctx, before, after), nil
}

// CancelMeeting is idempotent: canceling a canceled appointment returns it unchanged.
func (s *Service) CancelMeeting(ctx context.Context, ref string) (_ model.Appointment, err error) {
	ctx, finish := s.startOp(ctx, "cancel", attribute.String("ref", ref))
	defer finish(&err)

	before, err := s.resolveAppointment(ctx, ref)
	if err != nil {
		return model.Appointment{}, err
	}
	if before.Status == model.StatusCanceled {
		return before, nil
	}

	canceled := model.StatusCanceled
	after, err := s.store.UpdateAppointment(ctx, before.ID, model.AppointmentPatch{Status: &canceled}, s.clock())
	if err != nil {
		return model.Appointment{}, err
	}
	metrics.AppointmentsCanceled.Inc()
	s.logger.InfoContext(ctx, "appointment canceled", "appointment_id", after.ID, "appointment_no", after.Number)

	return s.resync(ctx, before, after), nil
}

// resync brings the mirrored event in line with after: it is deleted when the
// appointment became canceled and upserted otherwise.
func (s *Service) resync(ctx context.Context, before, after model.Appointment) model.Appointment {
	if after.CalendarEventID == "" {
		return after
	}
	tech, err := s.store.GetTechnician(ctx, after.TechnicianID)
	if err != nil {
		s.degraded(ctx, "load_technician", err, "appointment_id", after.ID)
		return after
	}
	if tech.CalendarID == "" {
		return after
	}

	if before.Blocking() && !after.Blocking() {
		if err := s.calendar.DeleteEvent(ctx, tech.CalendarID, after.CalendarEventID); err != nil {
			s.degraded(ctx, "delete_event", err, "appointment_id", after.ID)
			return after
		}
		if err := s.store.SetCalendarEvent(ctx, after.ID, "", ""); err != nil {
			s.degraded(ctx, "store_event", err, "appointment_id", after.ID)
			return after
		}
		after.CalendarEventID, after.MeetingLink = "", ""
		return after
	}
	if !after.Blocking() {
		return after
	}

	user, err := s.store.GetUser(ctx, after.UserID)
	if err != nil {
		s.degraded(ctx, "load_user", err, "appointment_id", after.ID)
		return after
	}
	return s.mirror(ctx, tech, user, after)
}
