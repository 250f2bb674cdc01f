package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/model"
	"github.com/plumbdesk/dispatch/services/dispatch-service/internal/scheduling"
)

type createTechnicianRequest struct {
	Code       string   `json:"code" validate:"required,max=64"`
	FullName   string   `json:"full_name" validate:"required,max=256"`
	Timezone   string   `json:"timezone" validate:"omitempty,timezone"`
	Active     *bool    `json:"active"`
	CalendarID string   `json:"calendar_id" validate:"max=512"`
	Skills     []string `json:"skills" validate:"dive,required,max=128"`
}

func (h *DispatchHandler) CreateTechnician(w http.ResponseWriter, r *http.Request) {
	var req createTechnicianRequest
	if !h.decode(w, r, &req) {
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	tech, err := h.svc.CreateTechnician(r.Context(), model.Technician{
		Code:       req.Code,
		FullName:   req.FullName,
		Timezone:   req.Timezone,
		Active:     active,
		CalendarID: strings.TrimSpace(req.CalendarID),
		Skills:     req.Skills,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTechnicianResponse(tech))
}

func (h *DispatchHandler) GetTechnician(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	tech, err := h.svc.GetTechnician(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTechnicianResponse(tech))
}

type addSkillsRequest struct {
	Skills []string `json:"skills" validate:"required,min=1,dive,required,max=128"`
}

func (h *DispatchHandler) AddSkills(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req addSkillsRequest
	if !h.decode(w, r, &req) {
		return
	}
	tech, err := h.svc.AddTechnicianSkills(r.Context(), id, req.Skills)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTechnicianResponse(tech))
}

type publishShiftsRequest struct {
	StartDate     string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	StartTime     string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime       string   `json:"end_time" validate:"required,datetime=15:04"`
	Weekdays      []string `json:"weekdays" validate:"dive,required"`
	ClearOverlaps bool     `json:"clear_overlaps"`
}

func (h *DispatchHandler) PublishShifts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req publishShiftsRequest
	if !h.decode(w, r, &req) {
		return
	}

	startDate, _ := time.Parse(time.DateOnly, req.StartDate)
	endDate, _ := time.Parse(time.DateOnly, req.EndDate)
	startClock, err := scheduling.ParseClock(req.StartTime)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	endClock, err := scheduling.ParseClock(req.EndTime)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	weekdays, err := parseWeekdays(req.Weekdays)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	n, err := h.svc.PublishAvailability(r.Context(), scheduling.PublishRequest{
		TechnicianID:  id,
		StartDate:     startDate,
		EndDate:       endDate,
		StartClock:    startClock,
		EndClock:      endClock,
		Weekdays:      weekdays,
		ClearOverlaps: req.ClearOverlaps,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"shifts_created": n})
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("weekday %q: %w", n, model.ErrInvalidInput)
		}
		out = append(out, d)
	}
	return out, nil
}

type createUserRequest struct {
	FullName string       `json:"full_name" validate:"required_without=Phone,max=256"`
	Phone    string       `json:"phone" validate:"required_without=FullName,max=32"`
	Email    string       `json:"email" validate:"omitempty,email"`
	Address  *addressBody `json:"address"`
}

func (h *DispatchHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decode(w, r, &req) {
		return
	}
	u := model.User{
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
	}
	if a := req.Address; a != nil {
		u.Address = &model.Address{
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
		}
	}

	user, err := h.svc.CreateUser(r.Context(), u)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *DispatchHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *DispatchHandler) ListUserAppointments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	appts, err := h.svc.ListUserAppointments(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": items})
}
