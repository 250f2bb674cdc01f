package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/availability"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
)

// Store is the persistence the scheduling service relies on. Implementations
// must reject overlapping live holds and non-canceled appointments of one
// technician with a *model.ConflictError, and report missing rows with
// model.ErrNotFound.
type Store interface {
	// ActiveTechniciansWithSkill matches skill case-insensitively and returns
	// technicians in insertion order.
	ActiveTechniciansWithSkill(ctx context.Context, skill string) ([]model.Technician, error)
	ListShifts(ctx context.Context, techIDs []uuid.UUID, window availability.Interval) ([]model.Shift, error)
	// ListBusy returns non-canceled appointments and holds live at now that
	// intersect window, grouped by technician.
	ListBusy(ctx context.Context, techIDs []uuid.UUID, window availability.Interval, now time.Time) (map[uuid.UUID][]availability.Interval, error)

	GetTechnician(ctx context.Context, id uuid.UUID) (model.Technician, error)
	GetUser(ctx context.Context, id uuid.UUID) (model.User, error)

	// InsertHold purges the technician's expired holds overlapping the
	// interval before inserting.
	InsertHold(ctx context.Context, h model.Hold, now time.Time) (model.Hold, error)
	// InsertAppointment snapshots the user's phone and default address. When
	// consumeHold is set that live hold is released in the same transaction.
	InsertAppointment(ctx context.Context, a model.Appointment, consumeHold *uuid.UUID, now time.Time) (model.Appointment, error)
	AppointmentByNumber(ctx context.Context, number int64) (model.Appointment, error)
	AppointmentByID(ctx context.Context, id uuid.UUID) (model.Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, patch model.AppointmentPatch, now time.Time) (model.Appointment, error)
	SetCalendarEvent(ctx context.Context, id uuid.UUID, eventID, meetingLink string) error

	PublishShifts(ctx context.Context, techID uuid.UUID, shifts []availability.Interval, clearOverlaps bool) (int, error)

	CreateTechnician(ctx context.Context, t model.Technician) (model.Technician, error)
	AddTechnicianSkills(ctx context.Context, techID uuid.UUID, skills []string) (model.Technician, error)
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	ListUserAppointments(ctx context.Context, userID uuid.UUID) ([]model.Appointment, error)
}
