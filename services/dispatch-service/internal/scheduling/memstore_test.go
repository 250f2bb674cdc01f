package scheduling

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/availability"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/calendar"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
)

// memStore mirrors the Postgres store semantics in memory, including the
// per-technician overlap exclusion over live holds and non-canceled appointments.
type memStore struct {
	mu           sync.Mutex
	techs        []model.Technician
	users        map[uuid.UUID]model.User
	shifts       []model.Shift
	holds        map[uuid.UUID]model.Hold
	appointments []model.Appointment
	nextNumber   int64
	calendarSets int
}

func newMemStore() *memStore {
	return &memStore{
		users: map[uuid.UUID]model.User{},
		holds: map[uuid.UUID]model.Hold{},
	}
}

func (m *memStore) ActiveTechniciansWithSkill(_ context.Context, skill string) ([]model.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	skill = strings.ToLower(strings.TrimSpace(skill))
	var out []model.Technician
	for _, t := range m.techs {
		if t.Active && slices.Contains(t.Skills, skill) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListShifts(_ context.Context, techIDs []uuid.UUID, window availability.Interval) ([]model.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Shift
	for _, sh := range m.shifts {
		if slices.Contains(techIDs, sh.TechnicianID) && availability.Overlaps(availability.Interval{Start: sh.Start, End: sh.End}, window) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (m *memStore) ListBusy(_ context.Context, techIDs []uuid.UUID, window availability.Interval, now time.Time) (map[uuid.UUID][]availability.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[uuid.UUID][]availability.Interval{}
	for _, a := range m.appointments {
		iv := availability.Interval{Start: a.Start, End: a.End}
		if a.Blocking() && slices.Contains(techIDs, a.TechnicianID) && availability.Overlaps(iv, window) {
			out[a.TechnicianID] = append(out[a.TechnicianID], iv)
		}
	}
	for _, h := range m.holds {
		iv := availability.Interval{Start: h.Start, End: h.End}
		if h.Live(now) && slices.Contains(techIDs, h.TechnicianID) && availability.Overlaps(iv, window) {
			out[h.TechnicianID] = append(out[h.TechnicianID], iv)
		}
	}
	return out, nil
}

func (m *memStore) GetTechnician(_ context.Context, id uuid.UUID) (model.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.techs {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Technician{}, model.NotFoundError("technician", id)
}

func (m *memStore) GetUser(_ context.Context, id uuid.UUID) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, model.NotFoundError("user", id)
	}
	return u, nil
}

// checkFree must be called with mu held.
func (m *memStore) checkFree(techID uuid.UUID, iv availability.Interval, now time.Time, skipAppt uuid.UUID) error {
	for id, h := range m.holds {
		if h.TechnicianID == techID && !h.Live(now) && availability.Overlaps(iv, availability.Interval{Start: h.Start, End: h.End}) {
			delete(m.holds, id)
		}
	}
	conflict := &model.ConflictError{TechnicianID: techID, Start: iv.Start, End: iv.End}
	for _, h := range m.holds {
		if h.TechnicianID == techID && availability.Overlaps(iv, availability.Interval{Start: h.Start, End: h.End}) {
			return conflict
		}
	}
	for _, a := range m.appointments {
		if a.ID != skipAppt && a.TechnicianID == techID && a.Blocking() && availability.Overlaps(iv, availability.Interval{Start: a.Start, End: a.End}) {
			return conflict
		}
	}
	return nil
}

func (m *memStore) InsertHold(_ context.Context, h model.Hold, now time.Time) (model.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkFree(h.TechnicianID, availability.Interval{Start: h.Start, End: h.End}, now, uuid.Nil); err != nil {
		return model.Hold{}, err
	}
	h.ID = uuid.New()
	h.CreatedAt = now
	m.holds[h.ID] = h
	return h, nil
}

func (m *memStore) InsertAppointment(_ context.Context, a model.Appointment, consumeHold *uuid.UUID, now time.Time) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var released *model.Hold
	if consumeHold != nil {
		h, ok := m.holds[*consumeHold]
		if !ok || h.TechnicianID != a.TechnicianID || !h.Live(now) || (h.UserID != nil && *h.UserID != a.UserID) {
			return model.Appointment{}, model.NotFoundError("hold", *consumeHold)
		}
		released = &h
		delete(m.holds, h.ID)
	}
	if err := m.checkFree(a.TechnicianID, availability.Interval{Start: a.Start, End: a.End}, now, uuid.Nil); err != nil {
		if released != nil {
			m.holds[released.ID] = *released
		}
		return model.Appointment{}, err
	}

	u := m.users[a.UserID]
	a.ID = uuid.New()
	a.Number = m.nextNumber
	m.nextNumber++
	a.PhoneSnapshot = u.Phone
	if u.Address != nil {
		a.AddressLine1, a.AddressLine2 = u.Address.Line1, u.Address.Line2
		a.City, a.State, a.PostalCode = u.Address.City, u.Address.State, u.Address.PostalCode
	}
	a.CreatedAt, a.UpdatedAt = now, now
	m.appointments = append(m.appointments, a)
	return a, nil
}

func (m *memStore) AppointmentByNumber(_ context.Context, number int64) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if a.Number == number {
			return a, nil
		}
	}
	return model.Appointment{}, model.NotFoundError("appointment", number)
}

func (m *memStore) AppointmentByID(_ context.Context, id uuid.UUID) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Appointment{}, model.NotFoundError("appointment", id)
}

func (m *memStore) UpdateAppointment(_ context.Context, id uuid.UUID, patch model.AppointmentPatch, now time.Time) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.appointments {
		if a.ID != id {
			continue
		}
		next := patch.Apply(a)
		if next.Blocking() {
			if err := m.checkFree(next.TechnicianID, availability.Interval{Start: next.Start, End: next.End}, now, id); err != nil {
				return model.Appointment{}, err
			}
		}
		next.UpdatedAt = now
		m.appointments[i] = next
		return next, nil
	}
	return model.Appointment{}, model.NotFoundError("appointment", id)
}

func (m *memStore) SetCalendarEvent(_ context.Context, id uuid.UUID, eventID, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.appointments {
		if m.appointments[i].ID == id {
			m.appointments[i].CalendarEventID = eventID
			m.appointments[i].MeetingLink = link
			m.calendarSets++
			return nil
		}
	}
	return model.NotFoundError("appointment", id)
}

func (m *memStore) PublishShifts(_ context.Context, techID uuid.UUID, shifts []availability.Interval, clearOverlaps bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, iv := range shifts {
		if clearOverlaps {
			m.shifts = slices.DeleteFunc(m.shifts, func(sh model.Shift) bool {
				return sh.TechnicianID == techID && availability.Overlaps(iv, availability.Interval{Start: sh.Start, End: sh.End})
			})
		}
		m.shifts = append(m.shifts, model.Shift{ID: uuid.New(), TechnicianID: techID, Start: iv.Start, End: iv.End})
	}
	return len(shifts), nil
}

func (m *memStore) CreateTechnician(_ context.Context, t model.Technician) (model.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	m.techs = append(m.techs, t)
	return t, nil
}

func (m *memStore) AddTechnicianSkills(_ context.Context, id uuid.UUID, skills []string) (model.Technician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.techs {
		if m.techs[i].ID == id {
			for _, s := range skills {
				if !slices.Contains(m.techs[i].Skills, s) {
					m.techs[i].Skills = append(m.techs[i].Skills, s)
				}
			}
			return m.techs[i], nil
		}
	}
	return model.Technician{}, model.NotFoundError("technician", id)
}

func (m *memStore) CreateUser(_ context.Context, u model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.New()
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) ListUserAppointments(_ context.Context, userID uuid.UUID) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, a := range m.appointments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeCalendar records calls and fails on demand.
type fakeCalendar struct {
	mu        sync.Mutex
	busy      map[string][]availability.Interval
	freeErr   error
	upsertErr error
	deleteErr error
	upserts   []string
	deletes   []string
	tentative int
}

func (f *fakeCalendar) FreeBusy(_ context.Context, ids []string, _, _ time.Time) (map[string][]availability.Interval, error) {
	if f.freeErr != nil {
		return nil, f.freeErr
	}
	out := map[string][]availability.Interval{}
	for _, id := range ids {
		out[id] = f.busy[id]
	}
	return out, nil
}

func (f *fakeCalendar) UpsertEvent(_ context.Context, calID string, ev calendar.Event) (calendar.EventResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return calendar.EventResult{}, f.upsertErr
	}
	if ev.Tentative {
		f.tentative++
	}
	id := ev.ID
	if id == "" {
		id = "evt-" + uuid.NewString()[:8]
	}
	f.upserts = append(f.upserts, calID+"/"+id)
	return calendar.EventResult{ID: id, MeetingLink: "https://meet.example/" + id}, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, calID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, calID+"/"+eventID)
	return nil
}
